package core

import (
	"go/types"
	"path/filepath"
	"runtime"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestResultSourceImplementationsHardening ensures only sanctioned source
// packages provide concrete implementations of the domain.ResultSource
// interface. This guards architectural drift from introducing additional
// backends outside the vetted locations (memory + sqlite + postgres) without
// an explicit test update.
func TestResultSourceImplementationsHardening(t *testing.T) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedTypes, Tests: true}
	pkgs, err := packages.Load(cfg, "watercolumn/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	var resultSource *types.Interface
	for _, p := range pkgs {
		if p.PkgPath == "watercolumn/pkg/domain" {
			obj := p.Types.Scope().Lookup("ResultSource")
			if obj == nil {
				t.Fatalf("domain.ResultSource not found")
			}
			iface, ok := obj.Type().Underlying().(*types.Interface)
			if !ok {
				t.Fatalf("domain.ResultSource is not an interface")
			}
			resultSource = iface
		}
	}
	if resultSource == nil {
		t.Fatalf("failed to resolve ResultSource interface")
	}
	allowed := map[string]struct{}{
		"watercolumn/internal/infra/source/memory":   {},
		"watercolumn/internal/infra/source/sqlite":   {},
		"watercolumn/internal/infra/source/postgres": {},
	}
	var unexpected []string
	for _, p := range pkgs {
		if p.Types == nil || p.Types.Scope() == nil {
			continue
		}
		for _, name := range p.Types.Scope().Names() {
			obj := p.Types.Scope().Lookup(name)
			named, ok := obj.Type().(*types.Named)
			if !ok {
				continue
			}
			if _, ok := named.Underlying().(*types.Struct); !ok {
				continue
			}
			if types.Implements(types.NewPointer(named), resultSource) {
				if _, ok := allowed[p.PkgPath]; !ok {
					unexpected = append(unexpected, p.PkgPath+"."+name)
				}
			}
		}
	}
	if len(unexpected) > 0 {
		_, file, line, _ := runtime.Caller(0)
		t.Fatalf("unexpected ResultSource implementations (update allowed list intentionally if adding a new backend):\nfile=%s:%d\n%s", filepath.Base(file), line, unexpected)
	}
}
