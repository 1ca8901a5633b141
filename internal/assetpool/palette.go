package assetpool

import "strconv"

var palette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
	"#f4f1de", "#e07a5f", "#3d405b", "#81b29a", "#f2cc8f",
}

// contrast picks black or white text for a #rrggbb background.
func contrast(bg string) string {
	if len(bg) != 7 {
		return "#ffffff"
	}
	v, err := strconv.ParseUint(bg[1:], 16, 32)
	if err != nil {
		return "#ffffff"
	}
	r, g, b := float64(v>>16&0xff), float64(v>>8&0xff), float64(v&0xff)
	if 0.299*r+0.587*g+0.114*b > 150 {
		return "#000000"
	}
	return "#ffffff"
}
