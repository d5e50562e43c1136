package layout

import "github.com/ep9io/ax206dash/internal/config"

// defaultWidgets is the stock dashboard used when the config file declares no
// widgets: host header with a clock, cpu/mem/disk gauges down the left, a
// network throughput graph on the right, rates along the bottom.
func defaultWidgets(width, height int) []config.Widget {
	half := width / 2
	barH := 22
	rowH := 44
	footY := height - 28

	return []config.Widget{
		{Kind: "text", X: 4, Y: 2, W: width - 110, H: 20, Field: "hostname", Color: "#729fcf"},
		{Kind: "clock", X: width - 104, Y: 2, W: 100, H: 20, Color: "#729fcf"},

		{Kind: "text", X: 4, Y: 28, W: half - 8, H: 18, Field: "cpu_percent", Label: "CPU "},
		{Kind: "gauge", X: 4, Y: 28 + 18, W: half - 8, H: barH, Field: "cpu_percent", Color: "#57ae24"},

		{Kind: "text", X: 4, Y: 28 + rowH, W: half - 8, H: 18, Field: "mem_percent", Label: "MEM "},
		{Kind: "gauge", X: 4, Y: 28 + rowH + 18, W: half - 8, H: barH, Field: "mem_percent", Color: "#3465a4"},

		{Kind: "text", X: 4, Y: 28 + 2*rowH, W: half - 8, H: 18, Field: "disk_percent", Label: "DISK "},
		{Kind: "gauge", X: 4, Y: 28 + 2*rowH + 18, W: half - 8, H: barH, Field: "disk_percent", Color: "#cc0000"},

		{Kind: "text", X: half + 4, Y: 28, W: half - 8, H: 18, Field: "net_rx", Label: "NET RX ", Color: "#00bcd4"},
		{Kind: "graph", X: half + 4, Y: 28 + 18, W: half - 8, H: 2*rowH + barH - 18, Field: "net_rx", Color: "#00bcd4"},

		{Kind: "text", X: 4, Y: footY, W: half - 8, H: 18, Field: "net_tx", Label: "TX ", Color: "#00bcd4"},
		{Kind: "text", X: half + 4, Y: footY, W: half - 8, H: 18, Field: "load_1", Label: "LOAD ", Color: "#f57900"},
	}
}
