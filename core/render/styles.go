package render

import (
	"encoding/json"
	"os"
	"path/filepath"

	"slidecast/model"
)

// captionParams are the drawtext parameters for one caption style.
// X and Y are drawtext position expressions.
type captionParams struct {
	FontSize  int    `json:"fontSize"`
	FontColor string `json:"fontColor"`
	X         string `json:"x"`
	Y         string `json:"y"`
	Box       bool   `json:"box"`
	BoxColor  string `json:"boxColor"`
	Shadow    bool   `json:"shadow"`
}

// captionStyles is the fixed caption preset table: centered bar, big
// centered title, handwritten bottom-right, and small monospace corner tag.
var captionStyles = map[model.CaptionStyle]captionParams{
	model.CaptionSimple: {
		FontSize:  40,
		FontColor: "white",
		X:         "(w-text_w)/2",
		Y:         "h-text_h-50",
		Box:       true,
		BoxColor:  "black@0.6",
	},
	model.CaptionCenter: {
		FontSize:  80,
		FontColor: "white",
		X:         "(w-text_w)/2",
		Y:         "(h-text_h)/2",
		Shadow:    true,
	},
	model.CaptionHandwritten: {
		FontSize:  60,
		FontColor: "#FFD700",
		X:         "w-text_w-50",
		Y:         "h-text_h-100",
		Shadow:    true,
	},
	model.CaptionMinimal: {
		FontSize:  24,
		FontColor: "white",
		X:         "30",
		Y:         "h-text_h-30",
		Box:       true,
		BoxColor:  "black",
	},
}

const stylesFileName = "styles.json"

// writeStyles materializes the caption style table into the bundle.
func writeStyles(bundleLoc string) error {
	data, err := json.Marshal(captionStyles)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(bundleLoc, stylesFileName), data, 0644)
}

// loadStyles reads the caption style table back from a bundle.
func loadStyles(bundleLoc string) (map[model.CaptionStyle]captionParams, error) {
	data, err := os.ReadFile(filepath.Join(bundleLoc, stylesFileName))
	if err != nil {
		return nil, err
	}
	var styles map[model.CaptionStyle]captionParams
	if err := json.Unmarshal(data, &styles); err != nil {
		return nil, err
	}
	return styles, nil
}
