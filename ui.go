package sfsampler

import "encoding/json"

// The ui_hierarchy document tells generic editors how to browse the
// parameter surface: a root level listing presets with two knobs, and a
// bank chooser level fed by soundfont_list.

type uiParam struct {
	Key   string `json:"key,omitempty"`
	Level string `json:"level,omitempty"`
	Label string `json:"label"`
}

type uiLevel struct {
	Label       string    `json:"label"`
	ListParam   string    `json:"list_param,omitempty"`
	CountParam  string    `json:"count_param,omitempty"`
	NameParam   string    `json:"name_param,omitempty"`
	ItemsParam  string    `json:"items_param,omitempty"`
	SelectParam string    `json:"select_param,omitempty"`
	Children    any       `json:"children"`
	Knobs       []string  `json:"knobs"`
	Params      []uiParam `json:"params"`
}

type uiDocument struct {
	Modes  any `json:"modes"`
	Levels struct {
		Root      uiLevel `json:"root"`
		Soundfont uiLevel `json:"soundfont"`
	} `json:"levels"`
}

func buildUIHierarchy(label string) string {
	var doc uiDocument
	doc.Levels.Root = uiLevel{
		Label:      label,
		ListParam:  "preset",
		CountParam: "preset_count",
		NameParam:  "preset_name",
		Knobs:      []string{"octave_transpose", "gain"},
		Params: []uiParam{
			{Key: "octave_transpose", Label: "Octave"},
			{Key: "gain", Label: "Gain"},
			{Level: "soundfont", Label: "Choose Soundfont"},
		},
	}
	doc.Levels.Soundfont = uiLevel{
		Label:       "Soundfont",
		ItemsParam:  "soundfont_list",
		SelectParam: "soundfont_index",
		Knobs:       []string{},
		Params:      []uiParam{},
	}
	bt, _ := json.Marshal(doc)
	return string(bt)
}
