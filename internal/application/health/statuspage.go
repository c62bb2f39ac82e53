package health

import (
	"fmt"
	"strings"
)

// RenderStatusPage renders a compact HTML status page from collected health
// data. Served at the root path as a liveness landing page.
func RenderStatusPage(r CollectResult) string {
	var deps strings.Builder
	for _, name := range []string{"database", "redis"} {
		dep, ok := r.Dependencies[name]
		if !ok {
			continue
		}
		cls := "bad"
		if dep.Status == "connected" {
			cls = "ok"
		}
		ping := ""
		if dep.PingMs != nil {
			ping = fmt.Sprintf(" (%vms)", dep.PingMs)
		}
		deps.WriteString(fmt.Sprintf(`<li><span class="%s">&#9679;</span> %s: %s%s</li>`, cls, name, dep.Status, ping))
	}

	overallCls := "bad"
	if r.Status == "ok" {
		overallCls = "ok"
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>ApprovalFlow API Status</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif; background: #0f172a; color: #e2e8f0; margin: 0; padding: 48px; }
    .card { max-width: 560px; margin: 0 auto; background: #1e293b; border-radius: 12px; padding: 32px; }
    h1 { font-size: 20px; margin: 0 0 4px 0; }
    .sub { color: #94a3b8; font-size: 13px; margin-bottom: 24px; }
    ul { list-style: none; padding: 0; margin: 0; }
    li { padding: 8px 0; border-bottom: 1px solid #334155; font-size: 14px; }
    .ok { color: #4ade80; }
    .bad { color: #f87171; }
    .stats { margin-top: 20px; color: #94a3b8; font-size: 13px; }
  </style>
</head>
<body>
  <div class="card">
    <h1><span class="%s">&#9679;</span> ApprovalFlow API</h1>
    <div class="sub">status: %s &middot; uptime: %ds &middot; %s</div>
    <ul>%s</ul>
    <div class="stats">requests: %d &middot; failed: %d &middot; success rate: %s%%</div>
  </div>
</body>
</html>`, overallCls, r.Status, r.Runtime.UptimeSeconds, r.Runtime.GoVersion,
		deps.String(), r.Traffic.TotalRequests, r.Traffic.FailedCount, r.Traffic.SuccessRate)
}
