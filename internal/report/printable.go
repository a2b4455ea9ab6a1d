package report

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"
)

var printableTmpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
li.wrong { color: #b00020; }
</style>
</head>
<body onload="window.print()">
<h2>{{.Title}}</h2>
<p>Time Limit: {{.Summary.Settings.TimeLimitMinutes}} minutes</p>
<p>Factor Range: {{.Summary.Settings.MinFactor}} – {{.Summary.Settings.MaxFactor}}</p>
<p>No Duplicates: {{.NoDuplicates}}</p>
<p>Total Attempts: {{.Summary.Attempts}}</p>
<p>Correct Answers: {{.Summary.Correct}}</p>
<p>Accuracy: {{.Accuracy}}%</p>
<ul>
{{- range .Lines}}
<li{{if not .Correct}} class="wrong"{{end}}>{{.Text}}</li>
{{- end}}
</ul>
</body>
</html>
`))

type printableLine struct {
	Text    string
	Correct bool
}

type printableData struct {
	Title        string
	Summary      Summary
	NoDuplicates string
	Accuracy     string
	Lines        []printableLine
}

// RenderHTML writes the printable report page. The page opens the print
// dialog when loaded.
func RenderHTML(w io.Writer, sum Summary) error {
	data := printableData{
		Title:        Title,
		Summary:      sum,
		NoDuplicates: YesNo(sum.Settings.NoDuplicates),
		Accuracy:     FormatAccuracy(sum.Correct, sum.Attempts),
		Lines:        make([]printableLine, 0, len(sum.History)),
	}
	for _, a := range sum.History {
		data.Lines = append(data.Lines, printableLine{Text: Line(a), Correct: a.Correct})
	}
	return printableTmpl.Execute(w, data)
}

// WritePrintable renders the printable report into dir and returns its path.
func WritePrintable(dir string, sum Summary, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}
	name := fmt.Sprintf("sprint-%s.html", now.Format("20060102-150405"))
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report: %w", err)
	}
	if err := RenderHTML(f, sum); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close report: %w", err)
	}
	return path, nil
}

// OpenCommand returns the system command that opens path in the default viewer.
func OpenCommand(goos, path string) *exec.Cmd {
	switch goos {
	case "darwin":
		return exec.Command("open", path)
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", path)
	default:
		return exec.Command("xdg-open", path)
	}
}

// Open hands path to the system viewer without waiting for it to exit.
func Open(path string) error {
	cmd := OpenCommand(runtime.GOOS, path)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open report: %w", err)
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}
