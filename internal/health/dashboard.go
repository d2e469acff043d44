package health

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RenderDashboardHTML returns the HTML status page served at GET /.
func RenderDashboardHTML(health CollectResult) string {
	payload := map[string]interface{}{
		"status":       health.Status,
		"runtime":      health.Runtime,
		"traffic":      health.Traffic,
		"dependencies": health.Dependencies,
	}
	b, _ := json.Marshal(payload)
	jsonStr := string(b)
	// Escape for embedding in a JS template literal: \ ` $
	jsonStr = strings.ReplaceAll(jsonStr, "\\", "\\\\")
	jsonStr = strings.ReplaceAll(jsonStr, "`", "\\`")
	jsonStr = strings.ReplaceAll(jsonStr, "$", "\\$")

	avgTime := fmt.Sprint(health.Traffic.AvgResponseTime)
	lastReqMethod := "-"
	lastReqPath := "-"
	if m, ok := health.Traffic.LastRequest.(map[string]interface{}); ok {
		if v, ok := m["method"].(string); ok {
			lastReqMethod = v
		}
		if v, ok := m["path"].(string); ok {
			lastReqPath = v
		}
	}

	statusLabel := "All systems operational"
	statusClass := "ok"
	if health.Status != "ok" {
		statusLabel = "Service degraded"
		statusClass = "issue"
	}

	depRows := ""
	for _, name := range []string{"database", "redis", "directory"} {
		dep, ok := health.Dependencies[name]
		if !ok {
			continue
		}
		ping := "-"
		if dep.PingMs != nil {
			ping = fmt.Sprintf("%v ms", dep.PingMs)
		}
		depRows += fmt.Sprintf(`<tr><td>%s</td><td class="dep-%s">%s</td><td>%s</td></tr>`, name, dep.Status, dep.Status, ping)
	}

	return `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>AgentHQ · API Status</title>
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <style>
    :root { --ink: #1b1f3b; --accent: #5865f2; --bg: #f6f7fb; --muted: #6b7280; --ok: #16a34a; --bad: #dc2626; }
    * { box-sizing: border-box; }
    body { background: var(--bg); color: var(--ink); font-family: 'Segoe UI', system-ui, sans-serif; margin: 0; min-height: 100vh; display: flex; align-items: center; justify-content: center; }
    .card { background: #fff; border-radius: 14px; box-shadow: 0 8px 30px rgba(27,31,59,.08); padding: 2.2rem 2.6rem; max-width: 640px; width: 94%; }
    h1 { margin: 0 0 .2rem; font-size: 1.4rem; }
    .status { font-weight: 700; margin-bottom: 1.4rem; }
    .status.ok { color: var(--ok); }
    .status.issue { color: var(--bad); }
    .grid { display: grid; grid-template-columns: repeat(3, 1fr); gap: .9rem; margin-bottom: 1.4rem; }
    .stat { background: var(--bg); border-radius: 10px; padding: .8rem 1rem; }
    .stat b { display: block; font-size: 1.15rem; }
    .stat span { color: var(--muted); font-size: .78rem; }
    table { width: 100%; border-collapse: collapse; font-size: .86rem; }
    td { padding: .45rem .2rem; border-top: 1px solid #eceef4; text-transform: capitalize; }
    .dep-connected, .dep-reachable { color: var(--ok); font-weight: 600; }
    .dep-error, .dep-disconnected, .dep-unreachable { color: var(--bad); font-weight: 600; }
    .foot { margin-top: 1.2rem; color: var(--muted); font-size: .75rem; }
  </style>
</head>
<body>
  <div class="card">
    <h1>AgentHQ API</h1>
    <div class="status ` + statusClass + `">` + statusLabel + `</div>
    <div class="grid">
      <div class="stat"><b>` + fmt.Sprint(health.Traffic.TotalRequests) + `</b><span>requests</span></div>
      <div class="stat"><b>` + health.Traffic.SuccessRate + `%</b><span>success rate</span></div>
      <div class="stat"><b>` + avgTime + ` ms</b><span>avg response</span></div>
    </div>
    <table>` + depRows + `</table>
    <div class="foot">Uptime ` + fmt.Sprint(health.Runtime.UptimeSeconds) + `s · ` + health.Runtime.GoVersion + ` · last request ` + lastReqMethod + ` ` + lastReqPath + `</div>
  </div>
  <script>window.__health = JSON.parse(` + "`" + jsonStr + "`" + `);</script>
</body>
</html>`
}
