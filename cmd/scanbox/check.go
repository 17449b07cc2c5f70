package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/scanbox/internal/api"
	"github.com/jackzampolin/scanbox/internal/capture"
	"github.com/jackzampolin/scanbox/internal/config"
	"github.com/jackzampolin/scanbox/internal/geom"
	"github.com/jackzampolin/scanbox/internal/scan"
	"github.com/jackzampolin/scanbox/internal/svcctx"
)

var (
	checkType      string
	checkText      string
	checkUndecoded bool
	checkBox       string
	checkSensor    bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate a single detection against the target box",
	Long: `Evaluate one detection without running a session and print the
classification, overlap ratio, and the feedback it would produce.

--box takes x,y,width,height in view coordinates. With --sensor the box is
read as normalized capture coordinates and projected into the view first.

Examples:
  scanbox check --type ean13 --text 012345678905 --box 100,380,190,80
  scanbox check --type qr --undecoded --box 0,0,50,50
  scanbox check --type ean13 --text 012345678905 --box 0.3,0.45,0.4,0.09 --sensor`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := svcctx.ConfigFrom(cmd.Context()).Get()
		report, err := runCheck(cfg, checkType, checkText, !checkUndecoded, checkBox, checkSensor)
		if err != nil {
			return err
		}
		return api.Output(report)
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkType, "type", "ean13", "code type (ean8, ean13, pdf417, code128, qr)")
	checkCmd.Flags().StringVar(&checkText, "text", "", "decoded text")
	checkCmd.Flags().BoolVar(&checkUndecoded, "undecoded", false, "treat the detection as having no decoded text")
	checkCmd.Flags().StringVar(&checkBox, "box", "", "detection bounds as x,y,width,height")
	checkCmd.Flags().BoolVar(&checkSensor, "sensor", false, "box is in normalized capture coordinates")
	_ = checkCmd.MarkFlagRequired("box")
}

func runCheck(cfg *config.Config, typ, text string, decoded bool, box string, sensor bool) (api.CheckReport, error) {
	ct, err := scan.ParseCodeType(typ)
	if err != nil {
		return api.CheckReport{}, err
	}
	raw, err := parseBox(box)
	if err != nil {
		return api.CheckReport{}, err
	}

	c := scan.Code{Type: ct, Text: text, Decoded: decoded, Bounds: raw}
	bounds, projected := raw, raw.Valid()
	if sensor {
		p := capture.Preview{
			Sensor: geom.Size{Width: cfg.Capture.SensorWidth, Height: cfg.Capture.SensorHeight},
			View:   cfg.View(),
		}
		bounds, projected = p.Project(raw)
	}

	rules := cfg.Rules()
	return api.NewCheckReport(c, bounds, rules, rules.Evaluate(c, bounds, projected)), nil
}

// parseBox reads "x,y,width,height".
func parseBox(s string) (geom.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geom.Rect{}, fmt.Errorf("box must be x,y,width,height, got %q", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geom.Rect{}, fmt.Errorf("box component %d: %w", i+1, err)
		}
		v[i] = f
	}
	return geom.Rect{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
}
