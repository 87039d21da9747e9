// File: internal/server/index.go
package server

import (
	"html/template"
	"math/big"
	"net/http"
	"time"

	"github.com/degenlabs/rollfeed/internal/models"
)

// indexTemplate renders the recent rolls table. The JSON API is the primary
// surface; this page exists so a browser hitting the service root sees the
// feed without tooling.
var indexTemplate = template.Must(template.New("index").Funcs(template.FuncMap{
	"ether":     weiToEther,
	"shortAddr": shortAddress,
	"ago":       timeAgo,
}).Parse(`<!DOCTYPE html>
<html>
<head>
<title>rollfeed — recent rolls</title>
<meta http-equiv="refresh" content="15">
<style>
body { font-family: monospace; background: #111; color: #ddd; margin: 2em; }
table { border-collapse: collapse; width: 100%; }
th, td { padding: 4px 10px; text-align: left; border-bottom: 1px solid #333; }
th { color: #888; }
.win { color: #6c6; }
.lose { color: #c66; }
</style>
</head>
<body>
<h2>recent rolls ({{len .Rolls}})</h2>
<table>
<tr><th>game</th><th>player</th><th>amount</th><th>choice</th><th>outcome</th><th>result</th><th>when</th><th>tx</th></tr>
{{range .Rolls}}
<tr>
<td>{{.Game}}</td>
<td>{{shortAddr .Player}}</td>
<td>{{ether .Amount}}</td>
<td>{{.Choice}}</td>
<td>{{.Outcome}}</td>
{{if .Win}}<td class="win">win</td>{{else}}<td class="lose">lose</td>{{end}}
<td>{{ago .Timestamp}}</td>
<td>{{shortAddr .TxHash}}</td>
</tr>
{{end}}
</table>
</body>
</html>
`))

type indexData struct {
	Rolls []*models.Roll
}

// indexHandler renders the feed as an HTML table, newest first
func (s *HTTPServer) indexHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := indexTemplate.Execute(w, indexData{Rolls: s.feed.Rolls()}); err != nil {
		s.logger.Error("Failed to render index page", "error", err)
	}
}

// weiToEther formats a wei decimal string as ether with four decimals
func weiToEther(wei string) string {
	amount, ok := new(big.Float).SetString(wei)
	if !ok {
		return wei
	}
	amount.Quo(amount, big.NewFloat(1e18))
	return amount.Text('f', 4)
}

// shortAddress shortens a hex string to its first and last characters
func shortAddress(hex string) string {
	if len(hex) <= 12 {
		return hex
	}
	return hex[:8] + "…" + hex[len(hex)-4:]
}

// timeAgo renders a timestamp relative to now
func timeAgo(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	d := time.Since(ts).Round(time.Second)
	if d < time.Minute {
		return d.String() + " ago"
	}
	if d < time.Hour {
		return d.Round(time.Minute).String() + " ago"
	}
	return ts.UTC().Format("2006-01-02 15:04")
}
