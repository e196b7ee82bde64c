package eval

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMathModule(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"import math\nmath.sqrt(16)", "4"},
		{"import math\nmath.floor(3.9)", "3"},
		{"import math\nmath.ceil(3.1)", "4"},
		{"import math\nmath.abs(-2)", "2"},
		{"import math as m\nm.pow(2, 8)", "256"},
		{"from math import sqrt\nsqrt(25)", "5"},
	}

	for _, tt := range tests {
		expectInspect(t, tt.input, tt.expected)
	}
}

func TestJsonModule(t *testing.T) {
	src := `import json
let data = json.parse("{\"n\": 3, \"ok\": true}")
data["n"]`
	expectInspect(t, src, "3")

	round := `import json
json.parse(json.string({a: 1}))["a"]`
	expectInspect(t, round, "1")
}

func TestTimeModule(t *testing.T) {
	result, _ := testEval(t, "import time\ntime.now()")
	if _, ok := result.(*Float); !ok {
		t.Errorf("time.now() returned %T, want *Float", result)
	}
}

func TestRegexModule(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`import regex
regex.match("\\d+", "abc123")`, "false"},
		{`import regex
regex.search("\\d+", "abc123")`, "true"},
		{`import regex
regex.find("\\d+", "a1b22c333")`, `["1", "22", "333"]`},
		{`import regex
regex.replace("\\s+", "-", "a  b   c")`, "a-b-c"},
	}

	for _, tt := range tests {
		expectInspect(t, tt.input, tt.expected)
	}
}

func TestPathModule(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`import path
path.name("/tmp/data.txt")`, "data.txt"},
		{`import path
path.stem("/tmp/data.txt")`, "data"},
		{`import path
path.ext("/tmp/data.txt")`, ".txt"},
	}

	for _, tt := range tests {
		expectInspect(t, tt.input, tt.expected)
	}
}

func TestCryptoModule(t *testing.T) {
	src := `import crypto
crypto.decode64(crypto.encode64("secret"))`
	expectInspect(t, src, "secret")

	uuid, _ := testEval(t, "import crypto\ncrypto.uuid()")
	s, ok := uuid.(*String)
	if !ok || len(s.Value) != 36 {
		t.Errorf("uuid()=%v, want 36-char string", uuid)
	}
}

func TestBcrypt(t *testing.T) {
	src := `import crypto
let hashed = crypto.bcrypt("hunter2")
[crypto.bcrypt_verify("hunter2", hashed), crypto.bcrypt_verify("wrong", hashed)]`
	expectInspect(t, src, "[true, false]")
}

func TestJwtModule(t *testing.T) {
	src := `import jwt
let tok = jwt.sign({sub: "user1"}, "topsecret")
let claims = jwt.verify(tok, "topsecret")
claims["sub"]`
	expectInspect(t, src, "user1")
}

func TestJwtVerifyRejectsBadSecret(t *testing.T) {
	src := `import jwt
let tok = jwt.sign({sub: "user1"}, "topsecret")
jwt.verify(tok, "other")`
	interp := New()
	interp.Stdout = &bytes.Buffer{}
	if _, err := interp.EvalSource(src); err == nil {
		t.Fatal("expected verification error, got none")
	}
}

func TestFileImport(t *testing.T) {
	dir := t.TempDir()
	libSource := `fn helper() { return 99 }
let exported = "lib value"
`
	if err := os.WriteFile(filepath.Join(dir, "util.clarity"), []byte(libSource), 0o644); err != nil {
		t.Fatal(err)
	}

	interp := New()
	interp.Stdout = &bytes.Buffer{}
	interp.SourceDir = dir

	result, err := interp.EvalSource(`import "util"
util.helper()`)
	if err != nil {
		t.Fatalf("eval error: %v", err)
	}
	if result.Inspect() != "99" {
		t.Errorf("got %q, want 99", result.Inspect())
	}
}

func TestFileImportWithAlias(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "util.clarity"), []byte("let answer = 42\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	interp := New()
	interp.Stdout = &bytes.Buffer{}
	interp.SourceDir = dir

	result, err := interp.EvalSource(`import "util" as u
u.answer`)
	if err != nil {
		t.Fatalf("eval error: %v", err)
	}
	if result.Inspect() != "42" {
		t.Errorf("got %q, want 42", result.Inspect())
	}
}

func TestFileImportCached(t *testing.T) {
	dir := t.TempDir()
	source := `mut hits = 0
hits += 1
`
	if err := os.WriteFile(filepath.Join(dir, "counted.clarity"), []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}

	interp := New()
	interp.Stdout = &bytes.Buffer{}
	interp.SourceDir = dir

	result, err := interp.EvalSource(`import "counted"
import "counted" as again
again.hits`)
	if err != nil {
		t.Fatalf("eval error: %v", err)
	}
	if result.Inspect() != "1" {
		t.Errorf("module body ran %s times, want 1", result.Inspect())
	}
}

func TestMissingModule(t *testing.T) {
	err := testEvalErr(t, "import nonexistent_module_xyz")
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("got %q", err.Error())
	}
}

func TestFileBuiltins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	src := `write("` + path + `", "line one\n")
append("` + path + `", "line two\n")
lines("` + path + `").length()`
	expectInspect(t, src, "2")

	expectInspect(t, `exists("`+path+`")`, "true")
	expectInspect(t, `exists("`+filepath.Join(dir, "missing")+`")`, "false")
}

func TestEnvBuiltin(t *testing.T) {
	t.Setenv("CLARITY_TEST_VAR", "hello")
	expectInspect(t, `env("CLARITY_TEST_VAR")`, "hello")
	expectInspect(t, `env("CLARITY_TEST_UNSET_VAR")`, "null")
}

func TestNamedImportOnlySeesModuleDeclarations(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "util.clarity"), []byte("let x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	interp := New()
	interp.Stdout = &bytes.Buffer{}
	interp.SourceDir = dir

	_, err := interp.EvalSource(`from "util" import len`)
	if err == nil {
		t.Fatal("importing a name the module never declares should fault")
	}
	if !strings.Contains(err.Error(), "'len' not found in 'util'") {
		t.Errorf("got %q, want a not-found fault naming the module", err.Error())
	}
}

func TestModuleMemberOnlySeesModuleDeclarations(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "util.clarity"), []byte("let x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	interp := New()
	interp.Stdout = &bytes.Buffer{}
	interp.SourceDir = dir

	if _, err := interp.EvalSource(`import "util"
util.x`); err != nil {
		t.Fatalf("eval error: %v", err)
	}
	_, err := interp.EvalSource(`import "util"
util.len`)
	if err == nil {
		t.Fatal("accessing a name the module never declares should fault")
	}
	if !strings.Contains(err.Error(), "'len' not found in 'util'") {
		t.Errorf("got %q, want a not-found fault naming the module", err.Error())
	}
}
