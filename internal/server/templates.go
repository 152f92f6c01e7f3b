package server

import "html/template"

// pageTemplates renders the input form, the preview/result page and the
// error page. The form's per-endpoint field visibility is driven by the
// endpointConfig object so only the fields an endpoint binds are shown.
var pageTemplates = template.Must(template.New("pages").Parse(`
{{define "index"}}<!DOCTYPE html>
<html>
<head><title>PBX Data Export</title></head>
<body>
<h1>PBX Data Export</h1>
{{range .Warnings}}<div style="background-color:#fff3cd;padding:10px;border-left:4px solid #ffc107;margin-bottom:10px;">{{.}}</div>{{end}}
<form action="/export" method="post">
  <label for="endpoint">Endpoint:</label>
  <select name="endpoint" id="endpoint" required>
    {{range .Endpoints}}<option value="{{.}}">{{.}}</option>{{end}}
  </select><br><br>
  <span id="field-from"><label for="from">From:</label> <input type="date" name="from" id="from"><br><br></span>
  <span id="field-to"><label for="to">To:</label> <input type="date" name="to" id="to"><br><br></span>
  <span id="field-queuedn"><label for="queuedn">Queue/Extension DN:</label> <input type="text" name="queuedn" id="queuedn"><br><br></span>
  <label for="top">Top:</label> <input type="number" name="top" id="top" value="1000" min="0"><br><br>
  <label for="skip">Skip:</label> <input type="number" name="skip" id="skip" value="0" min="0"><br><br>
  <label for="format">Format:</label>
  <select name="format" id="format">
    <option value="csv">CSV</option>
    <option value="xlsx">XLSX</option>
  </select><br><br>
  <input type="submit" value="Export">
</form>
<script>
const endpointConfig = {{.FieldConfig}};
const fields = ["queuedn", "from", "to"];
function updateFields() {
  const selected = document.getElementById("endpoint").value;
  const entry = endpointConfig[selected] || {};
  const show = entry.show || [];
  fields.forEach(function (f) {
    document.getElementById("field-" + f).style.display = show.includes(f) ? "" : "none";
  });
}
document.getElementById("endpoint").addEventListener("change", updateFields);
updateFields();
</script>
</body>
</html>{{end}}

{{define "result"}}<!DOCTYPE html>
<html>
<head><title>Data Preview &amp; Download</title></head>
<body>
<h1>Data Preview &amp; Download</h1>
{{range .Notices}}<div style="background-color:#f8f9fa;padding:10px;border-left:4px solid #6c757d;font-style:italic;margin-bottom:10px;">{{.}}</div>{{end}}
{{if .Message}}<p style="color:orange;">{{.Message}}</p>{{end}}
{{if .Headers}}
<h3>Sample data (up to {{.PreviewLimit}} rows):</h3>
<table border="1" cellpadding="5" cellspacing="0" style="border-collapse:collapse;">
  <thead><tr>
    {{range .Headers}}<th style="background-color:#f2f2f2;font-weight:bold;text-transform:uppercase;">{{.}}</th>{{end}}
  </tr></thead>
  <tbody>
    {{range .Preview}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{end}}
  </tbody>
</table>
{{end}}
{{if .DownloadToken}}
<br>
<form action="/download" method="get">
  <input type="hidden" name="token" value="{{.DownloadToken}}">
  <input type="submit" value="Download Full Data">
</form>
{{end}}
<br><a href="/">Back to input form</a>
</body>
</html>{{end}}

{{define "error"}}<!DOCTYPE html>
<html>
<head><title>PBX Data Export</title></head>
<body>
{{range .Errors}}<div style="background-color:#f8d7da;padding:10px;border-left:4px solid #dc3545;margin-bottom:10px;">{{.}}</div>{{end}}
<a href="/">Back to input form</a>
</body>
</html>{{end}}
`))
