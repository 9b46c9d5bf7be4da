package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/edmap/internal/selection"
	"github.com/sells-group/edmap/internal/view"
)

// Render output formats.
const (
	renderJSON    = "json"
	renderSVG     = "svg"
	renderGeoJSON = "geojson"
)

var (
	renderAttribute string
	renderFormat    string
	renderOut       string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the view for one attribute as JSON, chart SVG, or map GeoJSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		format := normalizeFormat(renderFormat)
		switch format {
		case renderJSON, renderSVG, renderGeoJSON:
		default:
			return eris.Errorf("render: unknown format %q (json, svg, geojson)", renderFormat)
		}

		env, err := initEnv(ctx, "render", false)
		if err != nil {
			return err
		}
		defer env.Close()

		w, closeFn, err := openOutput(renderOut, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if err := runRender(ctx, env, w, renderAttribute, format); err != nil {
			_ = closeFn()
			return err
		}
		if err := closeFn(); err != nil {
			return eris.Wrap(err, "render: close output")
		}
		if renderOut != "" && renderOut != "-" {
			zap.L().Info("render complete", zap.String("out", renderOut), zap.String("format", format))
		}
		return nil
	},
}

// runRender writes the view for attribute in format. An empty attribute
// renders the first catalog attribute.
func runRender(ctx context.Context, env *appEnv, w io.Writer, attribute, format string) error {
	_, ctrl, err := loadController(ctx, env)
	if err != nil {
		return err
	}
	v, err := pickView(ctrl, attribute)
	if err != nil {
		return err
	}

	switch format {
	case renderSVG:
		return view.RenderChartSVG(w, v.Chart)
	case renderGeoJSON:
		data, err := view.EncodeGeoJSON(ctrl.Input().Features, v)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return eris.Wrap(err, "render: write geojson")
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(v), "render: encode view")
	}
}

func pickView(ctrl *selection.Controller, attribute string) (view.View, error) {
	if attribute == "" {
		return ctrl.Current(), nil
	}
	v, err := ctrl.Select(attribute)
	if err != nil {
		return view.View{}, eris.Wrapf(err, "render: attribute %s", attribute)
	}
	return v, nil
}

func init() {
	renderCmd.Flags().StringVar(&renderAttribute, "attribute", "", "attribute key (default: first catalog attribute)")
	renderCmd.Flags().StringVar(&renderFormat, "format", renderJSON, "output format: json, svg, or geojson")
	renderCmd.Flags().StringVar(&renderOut, "out", "", "output file (default: stdout)")
	rootCmd.AddCommand(renderCmd)
}
