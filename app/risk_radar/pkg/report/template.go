package report

import "html/template"

var dashboardTpl = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(dashboardHTML))

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Cyber Risk Radar</title>
    <script src="https://cdn.jsdelivr.net/npm/chart.js"></script>
    <style>
        :root {
            --primary-color: #667eea;
            --bg-color: #f8fafc;
            --card-bg: #ffffff;
            --text-main: #1e293b;
            --text-secondary: #64748b;
            --border-color: #e2e8f0;
            --high: #dc3545;
            --medium: #fd7e14;
            --low: #28a745;
        }
        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
            background-color: var(--bg-color);
            color: var(--text-main);
            line-height: 1.6;
            margin: 0;
            padding: 20px;
        }
        .container { max-width: 1100px; margin: 0 auto; }
        header { text-align: center; margin-bottom: 32px; }
        h1 { font-size: 2.2rem; margin: 0 0 8px 0; }
        .meta { color: var(--text-secondary); font-size: 0.9rem; }
        section { background: var(--card-bg); border: 1px solid var(--border-color); border-radius: 12px; padding: 24px; margin-bottom: 24px; }
        h2 { margin-top: 0; color: var(--primary-color); }
        table { width: 100%; border-collapse: collapse; }
        th, td { text-align: left; padding: 8px; border-bottom: 1px solid var(--border-color); vertical-align: top; }
        .level-high { color: var(--high); font-weight: 600; }
        .level-medium { color: var(--medium); font-weight: 600; }
        .level-low { color: var(--low); font-weight: 600; }
        .empty { color: var(--text-secondary); font-style: italic; }
        .commentary { white-space: pre-wrap; }
        .plans { display: grid; gap: 16px; grid-template-columns: 1fr; }
        @media (min-width: 768px) { .plans { grid-template-columns: 1fr 1fr; } }
        .plan { border: 1px solid var(--border-color); border-radius: 8px; padding: 16px; }
    </style>
</head>
<body>
<div class="container">
    <header>
        <h1>Cyber Risk Radar</h1>
        <div class="meta">Generated {{.GeneratedAt.Format "2006-01-02 15:04"}}{{if .RunID}} &middot; run {{.RunID}}{{end}}</div>
    </header>

    <section id="risks">
        <h2>Emerging Risks</h2>
        {{with .Analysis}}
        <p>{{.BoardSummary}}</p>
        {{else}}
        <p class="empty">No data for this section.</p>
        {{end}}
        {{if .Heatmap}}
        <table>
            <tr><th>Risk</th><th>Impact</th><th>Likelihood</th><th>Score</th></tr>
            {{range .Heatmap}}
            <tr><td>{{.Title}}</td><td>{{.X}}</td><td>{{.Y}}</td><td class="level-{{.Level}}">{{.Value}}</td></tr>
            {{end}}
        </table>
        {{end}}
        {{with .Analysis}}{{range .EmergingRisks}}
        <h3>{{.Title}}</h3>
        <p>{{.Description}}</p>
        {{end}}{{end}}
    </section>

    <section id="trends">
        <h2>Time Series</h2>
        {{with .TimeSeries}}
        <p>{{.TimeSeriesSummary}}</p>
        <p>Overall trend: <strong>{{.OverallTrend}}</strong> &middot; Most volatile category: <strong>{{.MostVolatileCategory}}</strong></p>
        <ul>{{range .EmergingPatterns}}<li>{{.}}</li>{{end}}</ul>
        <canvas id="trendChart" height="120"></canvas>
        <table>
            <tr><th>Month</th><th>Articles</th><th>Top threat</th><th>Insight</th></tr>
            {{range .MonthlyTrends}}
            <tr><td>{{.Month}}</td><td>{{.TotalEvents}}</td><td>{{.TopThreat}}</td><td>{{.KeyInsight}}</td></tr>
            {{end}}
        </table>
        {{else}}
        <p class="empty">No data for this section.</p>
        {{end}}
    </section>

    <section id="commentary">
        <h2>Commentary</h2>
        {{if .Commentary}}<div class="commentary">{{.Commentary}}</div>{{else}}<p class="empty">No data for this section.</p>{{end}}
    </section>

    <section id="actions">
        <h2>Board Action Plan</h2>
        {{if .ActionPoints}}
        <table>
            <tr><th>Priority</th><th>Action</th><th>Owner</th></tr>
            {{range .ActionPoints}}
            <tr><td>{{.Priority}}</td><td>{{.Description}}</td><td>{{.SuggestedOwner}}</td></tr>
            {{end}}
        </table>
        {{else}}
        <p class="empty">No data for this section.</p>
        {{end}}
    </section>

    <section id="projects">
        <h2>Project Plans</h2>
        {{if .ProjectPlans}}
        <div class="plans">
        {{range $i, $p := .ProjectPlans}}
            <div class="plan">
                <h3>{{inc $i}}. {{$p.Title}}</h3>
                <p>{{$p.Objective}}</p>
                <p><strong>Stakeholders:</strong> {{range $j, $s := $p.Stakeholders}}{{if $j}}, {{end}}{{$s}}{{end}}</p>
                <p><strong>Timeline</strong></p>
                <ol>{{range $p.TimelinePhases}}<li>{{.}}</li>{{end}}</ol>
                <p><strong>KPIs</strong></p>
                <ul>{{range $p.KPIs}}<li>{{.}}</li>{{end}}</ul>
                <p><strong>Risks</strong></p>
                <ul>{{range $p.Risks}}<li>{{.}}</li>{{end}}</ul>
            </div>
        {{end}}
        </div>
        {{else}}
        <p class="empty">No data for this section.</p>
        {{end}}
    </section>
</div>
{{if .TimeSeries}}
<script>
    const chart = {{.ChartJSON}};
    const datasets = [{label: chart.total.label, data: chart.total.data, borderWidth: 3, fill: true, tension: 0.4}];
    (chart.series || []).forEach(s => datasets.push({label: s.label, data: s.data, fill: false, tension: 0.4}));
    new Chart(document.getElementById('trendChart'), {type: 'line', data: {labels: chart.labels, datasets: datasets}});
</script>
{{end}}
</body>
</html>
`
