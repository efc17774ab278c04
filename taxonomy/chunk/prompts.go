package chunk

import (
	"bytes"
	"embed"
	"encoding/json"
	"strings"
	"text/template"

	"github.com/teranos/capgen/errors"
	"github.com/teranos/capgen/taxonomy"
)

// SystemPrompt is sent with every generation request
const SystemPrompt = "You are an expert business architect who designs capability taxonomies. You answer with strictly valid JSON only."

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(template.New("prompts").Funcs(template.FuncMap{
	"join":  strings.Join,
	"quote": jsonQuote,
}).ParseFS(promptFS, "prompts/*.tmpl"))

// jsonQuote renders s as a JSON string literal so names containing quotes
// keep the example document valid.
func jsonQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

type priorL0 struct {
	Name        string
	Description string
	L1Names     []string
	L1          bool
}

type l0PromptData struct {
	Industry  string
	BatchSize int
	L1PerL0   int
	L1Total   int
	Prior     []priorL0
}

type l2PromptData struct {
	Name        string
	Description string
	Count       int
}

// L0BatchPrompt renders the request for one batch of L0 capabilities.
// prior lists every L0 generated so far in this run.
func L0BatchPrompt(industry string, prior []taxonomy.L0Capability, batchSize, l1PerL0 int) (string, error) {
	data := l0PromptData{
		Industry:  industry,
		BatchSize: batchSize,
		L1PerL0:   l1PerL0,
		L1Total:   batchSize * l1PerL0,
	}
	for _, l0 := range prior {
		p := priorL0{Name: l0.Name, Description: l0.Description}
		for _, l1 := range l0.L1 {
			p.L1Names = append(p.L1Names, l1.Name)
		}
		p.L1 = len(p.L1Names) > 0
		data.Prior = append(data.Prior, p)
	}
	return render("l0_batch.tmpl", data)
}

// L2BatchPrompt renders the request for the L2 children of one L1.
func L2BatchPrompt(l1 taxonomy.L1Capability, count int) (string, error) {
	return render("l2_batch.tmpl", l2PromptData{
		Name:        l1.Name,
		Description: l1.Description,
		Count:       count,
	})
}

func render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", errors.Wrapf(err, "failed to render %s", name)
	}
	return buf.String(), nil
}
