package view

import (
	"github.com/sells-group/edmap/internal/catalog"
	"github.com/sells-group/edmap/internal/classify"
)

// DropdownTitle is the disabled first option of the attribute menu.
const DropdownTitle = "Select Attribute"

// Option is one dropdown entry.
type Option struct {
	Value    string `json:"value"`
	Text     string `json:"text"`
	Disabled bool   `json:"disabled,omitempty"`
	Selected bool   `json:"selected,omitempty"`
}

// Dropdown is the attribute selection menu.
type Dropdown struct {
	Options []Option `json:"options"`
}

// BuildDropdown lists the selectable attributes in catalog order behind the
// disabled title option, marking current as selected.
func BuildDropdown(cat *catalog.Catalog, current string) Dropdown {
	opts := make([]Option, 0, cat.Len()+1)
	opts = append(opts, Option{Text: DropdownTitle, Disabled: true})
	for _, a := range cat.Attributes() {
		opts = append(opts, Option{Value: a.Key, Text: a.Label, Selected: a.Key == current})
	}
	return Dropdown{Options: opts}
}

// Container selectors the client mounts into.
const (
	ContainerMain = "#main"
	ContainerBody = "body"
)

// Tooltip coordinate bases. Page coordinates follow scrolling.
const (
	LabelCoordsPage   = "page"
	LabelCoordsClient = "client"
)

// MapFrame describes the client-side map projection.
type MapFrame struct {
	WidthFraction float64 `json:"width_fraction"`
	Height        float64 `json:"height"`
	Projection    string  `json:"projection"`
	Scale         float64 `json:"scale"`
}

// DefaultMapFrame is an Albers USA projection with Alaska and Hawaii insets.
func DefaultMapFrame() MapFrame {
	return MapFrame{WidthFraction: 0.5, Height: 550, Projection: "albersUsa", Scale: 1050}
}

// ClientConfig carries everything a browser client needs besides the view.
type ClientConfig struct {
	Container   string           `json:"container"`
	LabelCoords string           `json:"label_coords"`
	Map         MapFrame         `json:"map"`
	Chart       Layout           `json:"chart"`
	Palette     []classify.Color `json:"palette"`
	NoData      classify.Color   `json:"no_data"`
	Styles      map[string]Style `json:"styles"`
}

// NewClientConfig fills in the shared styles. Unknown container or
// coordinate values fall back to #main and page.
func NewClientConfig(container, labelCoords string, layout Layout, palette []classify.Color, noData classify.Color) ClientConfig {
	if container != ContainerBody {
		container = ContainerMain
	}
	if labelCoords != LabelCoordsClient {
		labelCoords = LabelCoordsPage
	}
	return ClientConfig{
		Container:   container,
		LabelCoords: labelCoords,
		Map:         DefaultMapFrame(),
		Chart:       layout,
		Palette:     palette,
		NoData:      noData,
		Styles: map[string]Style{
			"map":       MapStyle,
			"bar":       BarStyle,
			"highlight": HighlightStyle,
		},
	}
}
