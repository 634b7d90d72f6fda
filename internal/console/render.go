package console

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alfredjeanlab/relay/internal/model"
	"github.com/alfredjeanlab/relay/internal/ui"
)

// maxProgramsShown caps the installed-program list in system reports.
const maxProgramsShown = 5

const noInfo = "n/a"

// renderReport prints one report according to its kind. Heartbeats are
// silent.
func (c *Console) renderReport(r *model.ReportEvent) {
	info := r.DecodeInfo()
	id := r.AgentID

	switch r.Kind() {
	case model.KindNewConnection:
		c.println(ui.Success("\n[SERVER] Client [%s] connected.", id))

	case model.KindHeartbeat:

	case model.KindLANScan:
		devices, _ := info["lan_devices"].([]any)
		if len(devices) == 0 {
			c.println(ui.Accent("\n[REPORT] [%s] -> LAN scan finished, no devices found.", id))
			return
		}
		c.println(ui.Accent("\n[REPORT] [%s] -> LAN scan results:", id))
		for _, d := range devices {
			c.println(ui.Accent("  • %v", d))
		}

	case model.KindSystemInfo:
		c.println(ui.Bold("\n[REPORT] [%s] [SYSTEM INFO] Collected data:", id))
		c.println(fmt.Sprintf("  • Operating system: %s", stringOr(info["os"], noInfo)))
		c.println(fmt.Sprintf("  • Home directory: %s", stringOr(info["home_directory"], noInfo)))
		c.println(fmt.Sprintf("  • Installed programs: %s", programsSummary(info["installed_programs"])))

	case model.KindFileList:
		c.println(ui.Accent("\n[REPORT] [%s] -> File list for path '%s':", id, stringOr(info["path"], "")))
		tree, err := json.MarshalIndent(info["file_tree"], "", "  ")
		if err != nil {
			tree = []byte("null")
		}
		c.println(string(tree))

	case model.KindFileTransfer:
		c.println(ui.Success("\n[REPORT] [%s] -> File '%s' was transferred to '%s'.", id,
			stringOr(info["file_name"], ""), stringOr(info["path"], "")))

	case model.KindScriptOutput:
		c.println(ui.Warn("\n[REPORT] [%s] -> Script output:", id))
		c.println(stringOr(info["output"], ""))

	case model.KindWallpaperChanged:
		c.println(ui.Success("\n[REPORT] [%s] -> Wallpaper changed to '%s'.", id, stringOr(info["path"], "")))

	case model.KindWallpaperError:
		c.println(ui.Error("\n[REPORT] [%s] -> Wallpaper change failed: %s", id, stringOr(info["error"], "")))

	default:
		c.println(fmt.Sprintf("\n[REPORT] [%s] -> %s", id, r.Status))
		if len(info) > 0 {
			c.println(fmt.Sprintf("  Data: %s", compactJSON(r.Info)))
		}
	}
}

// programsSummary lists at most maxProgramsShown programs followed by an
// ellipsis. A non-list value is printed as is.
func programsSummary(v any) string {
	list, ok := v.([]any)
	if !ok {
		return stringOr(v, noInfo)
	}
	n := min(len(list), maxProgramsShown)
	names := make([]string, 0, n)
	for _, p := range list[:n] {
		names = append(names, fmt.Sprint(p))
	}
	return strings.Join(names, ", ") + "..."
}

func stringOr(v any, fallback string) string {
	switch s := v.(type) {
	case nil:
		return fallback
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

func compactJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
