package surfmesh

// Preset 内置函数
type Preset struct {
	Name        string `json:"name" yaml:"name"`
	Expression  string `json:"expression" yaml:"expression"`
	Description string `json:"description" yaml:"description"`
	Category    string `json:"category" yaml:"category"`
}

var presetCategories = []struct {
	name    string
	presets []Preset
}{
	{"Wave Functions", []Preset{
		{Name: "Simple Wave", Expression: "sin(x)*cos(y)", Description: "Basic sine-cosine wave pattern"},
		{Name: "Ripple Effect", Expression: "sin(sqrt(x*x + y*y)) * exp(-sqrt(x*x + y*y)/10)", Description: "Circular ripples with decay"},
		{Name: "Interference", Expression: "sin(x) + sin(y) + 0.5*sin(x+y)", Description: "Wave interference pattern"},
	}},
	{"Mathematical Classics", []Preset{
		{Name: "Mexican Hat", Expression: "(2 - (x*x + y*y)) * exp(-(x*x + y*y)/2)", Description: "Classic Ricker wavelet"},
		{Name: "Gaussian Bell", Expression: "exp(-(x*x + y*y)/4)", Description: "2D Gaussian distribution"},
		{Name: "Saddle Point", Expression: "x*x - y*y", Description: "Hyperbolic paraboloid"},
	}},
	{"Complex Patterns", []Preset{
		{Name: "Vortex", Expression: "sin((y/(abs(x)+0.1))*3 + sqrt(x*x + y*y)) * (10/(1 + x*x + y*y))", Description: "Spiral vortex pattern"},
		{Name: "Complex Wave", Expression: "sin(x*x + y*y) + 0.5*cos(x*3)*sin(y*3)", Description: "Complex interference pattern"},
		{Name: "Fractal-like", Expression: "sin(x) + sin(x*2)/2 + sin(x*4)/4 + cos(y) + cos(y*2)/2 + cos(y*4)/4", Description: "Multi-frequency composition"},
	}},
	{"Exotic Functions", []Preset{
		{Name: "Rose Pattern", Expression: "cos(3*(y/(abs(x)+0.1))) * sqrt(x*x + y*y) * exp(-sqrt(x*x + y*y)/5)", Description: "Rose-like pattern"},
		{Name: "Lattice", Expression: "sin(x*3)*sin(y*3) + 0.3*sin(x*9)*sin(y*9)", Description: "Crystal lattice structure"},
		{Name: "Tornado", Expression: "exp(-((x-sin(y/2)*2)*(x-sin(y/2)*2) + (y*0.5)*(y*0.5))/3) * sin(y*2)", Description: "Tornado-like spiral"},
	}},
}

// Presets 按分类顺序返回所有内置函数
func Presets() []Preset {
	var out []Preset
	for _, c := range presetCategories {
		for _, p := range c.presets {
			p.Category = c.name
			out = append(out, p)
		}
	}
	return out
}

func PresetCategories() []string {
	names := make([]string, len(presetCategories))
	for i, c := range presetCategories {
		names[i] = c.name
	}
	return names
}

// PresetByIndex index 从 1 开始
func PresetByIndex(index int) (Preset, bool) {
	all := Presets()
	if index < 1 || index > len(all) {
		return Preset{}, false
	}
	return all[index-1], true
}

func PresetCount() int {
	n := 0
	for _, c := range presetCategories {
		n += len(c.presets)
	}
	return n
}
