package testutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type recordingFatal struct{ msg string }

func (r *recordingFatal) Fatalf(format string, args ...any) { r.msg = fmt.Sprintf(format, args...) }

func writePackage(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestPredicates(t *testing.T) {
	cases := []struct {
		in                         string
		domain, internal, ownInner bool
		firstParty                 bool
	}{
		{"swimeeter/pkg/domain", true, false, false, true},
		{"swimeeter/internal/core", false, true, true, true},
		{"swimeeter/internal/infra/blob/s3", false, true, true, true},
		{"swimeeter", false, false, false, true},
		{"swimeeterx/internal/core", false, true, false, false},
		{"golang.org/x/text/internal/language", false, true, false, false},
		{"example.com/pkg/domain@v1.2.3", true, false, false, false},
		{"example.com/pkg/domainutil", false, false, false, false},
		{"internal/abi", false, false, false, false},
		{"", false, false, false, false},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			got := []bool{DomainImportForbidden(c.in), InternalImportForbidden(c.in), ModuleInternalForbidden(c.in), IsFirstParty(c.in)}
			want := []bool{c.domain, c.internal, c.ownInner, c.firstParty}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("domain/internal/module-internal/first-party (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDirectImportViolations(t *testing.T) {
	dir := writePackage(t, map[string]string{
		"store.go": `package store
import (
	"fmt"
	core "swimeeter/internal/core"
	"swimeeter/pkg/domain"
)
var _ = fmt.Sprint
`,
		"store_test.go": `package store
import "swimeeter/internal/cli"
`,
		"notes.txt": `import "swimeeter/internal/archive"`,
	})
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	viols, err := directImportViolations(dir, ModuleInternalForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if diff := cmp.Diff([]string{"swimeeter/internal/core (in store.go)"}, viols); diff != "" {
		t.Fatalf("violations (-want +got):\n%s", diff)
	}

	viols, err = directImportViolations(dir, DomainImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if diff := cmp.Diff([]string{"swimeeter/pkg/domain (in store.go)"}, viols); diff != "" {
		t.Fatalf("domain violations (-want +got):\n%s", diff)
	}

	AssertFirstPartyImportsWithin(t, dir, "swimeeter/pkg/domain", "swimeeter/internal/core")
	AssertNoDirectImports(t, dir, func(path string) bool { return strings.HasPrefix(path, "swimeeter/internal/cli") }, "cli is only imported from tests")
}

func TestDirectImportViolationsErrors(t *testing.T) {
	if _, err := directImportViolations(filepath.Join(t.TempDir(), "missing"), ModuleInternalForbidden); err == nil {
		t.Fatalf("expected error for missing dir")
	}
	dir := writePackage(t, map[string]string{"broken.go": "package broken\nimport (\n"})
	if _, err := directImportViolations(dir, ModuleInternalForbidden); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestTransitiveDependencyViolations(t *testing.T) {
	orig := goListDeps
	t.Cleanup(func() { goListDeps = orig })

	goListDeps = func(pattern string) ([]byte, error) {
		if pattern != "./pkg/domain" {
			t.Fatalf("unexpected pattern %q", pattern)
		}
		return []byte("errors\n  fmt\n\nswimeeter/internal/core\nswimeeter/pkg/domain\n"), nil
	}
	viols, _, err := transitiveDependencyViolations("./pkg/domain", ModuleInternalForbidden)
	if err != nil {
		t.Fatalf("deps: %v", err)
	}
	if diff := cmp.Diff([]string{"swimeeter/internal/core"}, viols); diff != "" {
		t.Fatalf("violations (-want +got):\n%s", diff)
	}

	goListDeps = func(string) ([]byte, error) { return []byte("no go files"), errors.New("exit status 1") }
	if _, out, err := transitiveDependencyViolations(".", ModuleInternalForbidden); err == nil || string(out) != "no go files" {
		t.Fatalf("expected go list failure with output, got %q %v", out, err)
	}
}

func TestFailureMessages(t *testing.T) {
	var rec recordingFatal
	failIfDirectViolations(&rec, "domain stays pure", nil)
	failIfTransitiveViolations(&rec, "domain stays pure", nil)
	if rec.msg != "" {
		t.Fatalf("no violations must not fail, got %q", rec.msg)
	}

	failIfDirectViolations(&rec, "domain stays pure", []string{"a (in x.go)", "b (in y.go)"})
	if !strings.Contains(rec.msg, "direct imports") || !strings.Contains(rec.msg, "domain stays pure") || !strings.Contains(rec.msg, "a (in x.go)\nb (in y.go)") {
		t.Fatalf("unexpected message %q", rec.msg)
	}
	failIfTransitiveViolations(&rec, "no storage", []string{"swimeeter/internal/infra/persistence/sqlite"})
	if !strings.Contains(rec.msg, "transitive dependency") || !strings.Contains(rec.msg, "sqlite") {
		t.Fatalf("unexpected message %q", rec.msg)
	}
}
