package cdi

import (
	"encoding/json"
	"os"
	"path/filepath"
	"text/template"

	"github.com/spf13/afero"

	"github.com/gpustack/runtime/internal/xerrors"
)

// specFileTemplate is deliberately trivial: CDI consumers expect plain
// JSON, so the template's only job is to marshal and place the bytes.
// Keeping it template-driven (rather than a bare json.Marshal call)
// matches how the rest of this runtime renders on-disk artifacts.
var specFileTemplate = template.Must(template.New("cdi-spec").Parse(`{{.}}`))

// Render writes spec as a CDI JSON document to path on fs, creating
// parent directories as needed.
func Render(fs afero.Fs, path string, spec *Spec) error {
	encoded, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		return xerrors.Wrap(err, "render-cdi-spec", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return xerrors.Wrap(err, "render-cdi-spec", path)
		}
	}

	f, err := fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return xerrors.Wrap(err, "render-cdi-spec", path)
	}
	defer f.Close()

	if err := specFileTemplate.Execute(f, string(encoded)); err != nil {
		return xerrors.Wrap(err, "render-cdi-spec", path)
	}
	return nil
}
