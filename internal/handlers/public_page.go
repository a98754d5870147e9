package handlers

import (
	"bytes"
	"errors"
	"html/template"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

var reportPage = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="bn"><head><meta charset="utf-8"><title>সুরক্ষা রিপোর্ট</title>
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta name="robots" content="noindex">
<style>body{font-family:-apple-system,BlinkMacSystemFont,sans-serif;max-width:800px;margin:0 auto;padding:20px;color:#333}h1{color:#1a1a1a}.meta{color:#666}img{max-width:100%}</style>
</head><body>
<h1>{{.TypeLabel}}</h1>
<p class="meta"><span id="status">{{.Report.Status}}</span> · {{.Report.CreatedAt.Format "2006-01-02 15:04 MST"}}</p>
<p>{{.Report.Description}}</p>
{{if .Report.PhotoURL}}<img src="{{.Report.PhotoURL}}" alt="photo">{{end}}
{{if .Report.AudioURL}}<audio controls src="{{.Report.AudioURL}}"></audio>{{end}}
<h2>সর্বশেষ অবস্থান</h2>
<p id="loc">{{with .Report.LatestLocation}}<a href="https://www.openstreetmap.org/?mlat={{.Latitude}}&amp;mlon={{.Longitude}}#map=17/{{.Latitude}}/{{.Longitude}}">{{.Latitude}}, {{.Longitude}}</a> ({{.Timestamp.Format "15:04:05 MST"}}){{else}}—{{end}}</p>
<script>
(function(){
  var es = new EventSource({{.StreamURL}});
  es.addEventListener("location", function(e){
    var l = JSON.parse(e.data), a = document.createElement("a");
    a.href = "https://www.openstreetmap.org/?mlat="+l.latitude+"&mlon="+l.longitude+"#map=17/"+l.latitude+"/"+l.longitude;
    a.textContent = l.latitude+", "+l.longitude;
    var p = document.getElementById("loc"); p.textContent = ""; p.appendChild(a);
  });
  es.addEventListener("status", function(e){
    document.getElementById("status").textContent = JSON.parse(e.data).status;
  });
})();
</script>
</body></html>`))

var pageTypeLabels = map[string]string{
	"ragging": "র‍্যাগিং রিপোর্ট",
	"safety":  "নিরাপত্তা রিপোর্ট",
}

// PublicPage renders GET /report/:token for share-link holders.
func (h *ReportHandler) PublicPage(c *fiber.Ctx) error {
	token := c.Params("token")
	view, err := h.reports.PublicView(c.UserContext(), token, fileURL)
	if errors.Is(err, services.ErrReportNotFound) {
		return c.Status(fiber.StatusNotFound).Type("html").SendString("<!DOCTYPE html><p>রিপোর্ট পাওয়া যায়নি।</p>")
	}
	if err != nil {
		return serviceError(c, err, "Failed to load report")
	}

	var buf bytes.Buffer
	err = reportPage.Execute(&buf, struct {
		Report    *dto.PublicReport
		TypeLabel string
		StreamURL string
	}{view, pageTypeLabels[view.Type], "/api/public/reports/" + token + "/stream"})
	if err != nil {
		return serviceError(c, err, "Failed to render report")
	}
	c.Set("Cache-Control", "no-store")
	return c.Type("html").Send(buf.Bytes())
}
