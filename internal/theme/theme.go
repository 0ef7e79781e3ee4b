package theme

// Theme identifies a visual preset for rendered widgets.
type Theme string

const (
	Modern  Theme = "modern"
	Neutral Theme = "neutral"
	Dark    Theme = "dark"
)

// Default is used when a widget spec carries no theme.
const Default = Modern

// Preset bundles the display metadata and stylesheet of a theme.
type Preset struct {
	ID          Theme   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Preview     Preview `json:"preview"`
	CSS         string  `json:"-"`
}

// Preview holds the colors shown in theme pickers.
type Preview struct {
	Background string `json:"background"`
	Text       string `json:"text"`
	Accent     string `json:"accent"`
	Border     string `json:"border"`
}

// Overrides replaces preset colors with user-configured ones. It is passed
// explicitly into every lookup; nothing in this package reads ambient state.
type Overrides struct {
	Backgrounds map[Theme][]string `json:"backgrounds,omitempty"`
	CSS         map[Theme]string   `json:"css,omitempty"`
}

// backgroundCount is the size of the rotating per-widget palette.
const backgroundCount = 3

var presets = map[Theme]Preset{
	Modern: {
		ID:          Modern,
		Name:        "Modern & Colorful",
		Description: "Soft pastel colors for a gentle look",
		Preview: Preview{
			Background: "#fef4f4",
			Text:       "#2d3748",
			Accent:     "#f687b3",
			Border:     "#ffd4e5",
		},
		CSS: `:root {
  --widget-text: #2d3748;
  --widget-heading: #1a202c;
  --widget-subtext: #4a5568;
  --widget-accent: #f687b3;
  --widget-border: #ffd4e5;
  --widget-shadow: 0 4px 20px rgba(0, 0, 0, 0.08);
}
h1, h2, h3 {
  color: var(--widget-heading);
  font-weight: 600;
}
.chart-container, .data-card {
  background: rgba(255, 255, 255, 0.6);
  border: 1px solid rgba(0, 0, 0, 0.05);
  border-radius: 16px;
  padding: 1.5rem;
  backdrop-filter: blur(10px);
  box-shadow: var(--widget-shadow);
}`,
	},
	Neutral: {
		ID:          Neutral,
		Name:        "Neutral & Clean",
		Description: "Minimal monochrome design",
		Preview: Preview{
			Background: "#ffffff",
			Text:       "#000000",
			Accent:     "#666666",
			Border:     "#e5e5e5",
		},
		CSS: `:root {
  --widget-text: #000000;
  --widget-heading: #000000;
  --widget-subtext: #737373;
  --widget-accent: #171717;
  --widget-border: #e5e5e5;
  --widget-shadow: 0 1px 3px rgba(0, 0, 0, 0.1);
  --widget-card-bg: #fafafa;
  --widget-card-border: #e5e5e5;
}
h1, h2, h3 {
  color: var(--widget-heading);
  font-weight: 300;
  letter-spacing: -0.02em;
}
.chart-container, .data-card {
  background: var(--widget-card-bg);
  border: 1px solid var(--widget-card-border);
  border-radius: 12px;
  padding: 1.5rem;
  box-shadow: var(--widget-shadow);
}`,
	},
	Dark: {
		ID:          Dark,
		Name:        "Dark & Professional",
		Description: "Sleek dark theme for tech environments",
		Preview: Preview{
			Background: "linear-gradient(135deg, #2d3748 0%, #1a202c 100%)",
			Text:       "#e0e0e0",
			Accent:     "#00d4ff",
			Border:     "#4a5568",
		},
		CSS: `:root {
  --widget-text: #e0e0e0;
  --widget-heading: #ffffff;
  --widget-subtext: #a0aec0;
  --widget-accent: #00d4ff;
  --widget-border: #4a5568;
  --widget-shadow: 0 20px 60px rgba(0, 0, 0, 0.5);
  --widget-card-bg: rgba(255, 255, 255, 0.05);
  --widget-card-border: rgba(255, 255, 255, 0.1);
}
h1, h2, h3 {
  color: var(--widget-heading);
  font-weight: 500;
}
.chart-container, .data-card {
  background: var(--widget-card-bg);
  border: 1px solid var(--widget-card-border);
  border-radius: 16px;
  padding: 1.5rem;
  backdrop-filter: blur(10px);
  box-shadow: var(--widget-shadow);
}`,
	},
}

var backgrounds = map[Theme][]string{
	Modern:  {"#fef4f4", "#f0f9ff", "#f0fdf4"},
	Neutral: {"#ffffff", "#fafafa", "#f5f5f5"},
	Dark:    {"#2d3748", "#1a202c", "#2c3e50"},
}

// Valid reports whether t names a known preset.
func Valid(t Theme) bool {
	_, ok := presets[t]
	return ok
}

// Normalize maps unknown or empty themes onto the default preset.
func Normalize(t Theme) Theme {
	if Valid(t) {
		return t
	}
	return Default
}

// PresetFor returns the preset for t, falling back to the default theme.
func PresetFor(t Theme) Preset {
	return presets[Normalize(t)]
}

// Presets lists all presets in a stable order.
func Presets() []Preset {
	return []Preset{presets[Modern], presets[Neutral], presets[Dark]}
}

// CSSFor returns the stylesheet for t, preferring an override when present.
func CSSFor(t Theme, o *Overrides) string {
	t = Normalize(t)
	if o != nil {
		if css, ok := o.CSS[t]; ok && css != "" {
			return css
		}
	}
	return presets[t].CSS
}

// BackgroundFor selects the widget background for position index. Adjacent
// widgets rotate through a fixed palette so a dashboard stays visually
// distinct without per-widget configuration.
func BackgroundFor(t Theme, index int, o *Overrides) string {
	t = Normalize(t)
	palette := backgrounds[t]
	if o != nil {
		if custom, ok := o.Backgrounds[t]; ok && len(custom) >= backgroundCount {
			palette = custom
		}
	}
	if index < 0 {
		index = -index
	}
	return palette[index%backgroundCount]
}
