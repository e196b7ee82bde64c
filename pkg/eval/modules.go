package eval

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"clarity/pkg/ast"
	"clarity/pkg/lexer"
	"clarity/pkg/parser"
)

// execImport resolves both builtin module imports and file imports.
func (interp *Interpreter) execImport(node *ast.ImportStatement, env *Environment) (Object, error) {
	if node.Path != "" {
		return interp.importFile(node, env)
	}

	module := interp.moduleFor(node.Module)
	if module == nil {
		return nil, runtimeFault("Module '%s' not found", node.Module)
	}
	if len(node.Names) > 0 {
		for _, name := range node.Names {
			value, found := module.Get(&String{Value: name})
			if !found {
				return nil, runtimeFault("'%s' not found in module '%s'", name, node.Module)
			}
			env.Declare(name, value, true)
		}
		return NULL, nil
	}
	if node.Alias != "" {
		env.Declare(node.Alias, module, true)
		return NULL, nil
	}
	env.Declare(node.Module, module, true)
	return NULL, nil
}

func (interp *Interpreter) importFile(node *ast.ImportStatement, env *Environment) (Object, error) {
	path := node.Path
	if !strings.HasSuffix(path, ".clarity") {
		path += ".clarity"
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(interp.SourceDir, path)
	}
	path = filepath.Clean(path)

	module, cached := interp.moduleCache[path]
	if !cached {
		source, err := os.ReadFile(path)
		if err != nil {
			return nil, runtimeFault("Cannot find module: %s", path)
		}
		l := lexer.New(string(source))
		p := parser.New(l)
		program := p.ParseProgram()
		if errs := p.Errors(); len(errs) > 0 {
			return nil, &Fault{Class: "SyntaxError", Message: errs[0]}
		}

		moduleEnv := NewEnclosedEnvironment(interp.Globals)
		savedDir := interp.SourceDir
		interp.SourceDir = filepath.Dir(path)
		for _, stmt := range program.Statements {
			if _, err := interp.ExecStatement(stmt, moduleEnv); err != nil {
				interp.SourceDir = savedDir
				return nil, err
			}
		}
		interp.SourceDir = savedDir
		module = &Module{Name: stemOf(node.Path), Env: moduleEnv}
		interp.moduleCache[path] = module
	}

	if len(node.Names) > 0 {
		for _, name := range node.Names {
			value, found := module.Env.GetLocal(name)
			if !found {
				return nil, runtimeFault("'%s' not found in '%s'", name, node.Path)
			}
			env.Declare(name, value, true)
		}
		return NULL, nil
	}
	alias := node.Alias
	if alias == "" {
		alias = stemOf(node.Path)
	}
	env.Declare(alias, module, true)
	return NULL, nil
}

func stemOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// moduleFor builds a builtin module on demand.
func (interp *Interpreter) moduleFor(name string) *Map {
	switch name {
	case "math":
		return mathModule()
	case "json":
		return jsonModule()
	case "os":
		return osModule()
	case "path":
		return pathModule()
	case "random":
		return randomModule()
	case "time":
		return timeModule()
	case "crypto":
		return cryptoModule(interp)
	case "regex":
		return regexModule()
	case "jwt":
		return jwtModule()
	case "mail":
		return mailModule()
	case "ws":
		return wsModule()
	}
	return nil
}

func moduleEntry(m *Map, name string, fn BuiltinFn) {
	m.Set(&String{Value: name}, &Builtin{Name: name, Fn: fn})
}

func moduleValue(m *Map, name string, value Object) {
	m.Set(&String{Value: name}, value)
}

func mathModule() *Map {
	m := NewMap()
	moduleValue(m, "pi", &Float{Value: math.Pi})
	moduleValue(m, "e", &Float{Value: math.E})
	moduleEntry(m, "sqrt", mathFn("sqrt", math.Sqrt))
	moduleEntry(m, "pow", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 2 {
			return nil, runtimeFault("pow expects 2 arguments, got %d", len(args))
		}
		base, ok1 := numericValue(args[0])
		exp, ok2 := numericValue(args[1])
		if !ok1 || !ok2 {
			return nil, typeFault("pow expects numbers")
		}
		return &Float{Value: math.Pow(base, exp)}, nil
	})
	moduleEntry(m, "abs", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 1 {
			return nil, runtimeFault("abs expects 1 argument, got %d", len(args))
		}
		switch v := args[0].(type) {
		case *Integer:
			if v.Value < 0 {
				return &Integer{Value: -v.Value}, nil
			}
			return v, nil
		case *Float:
			return &Float{Value: math.Abs(v.Value)}, nil
		}
		return nil, typeFault("abs expects a number, got %s", typeName(args[0]))
	})
	moduleEntry(m, "floor", mathToInt("floor", math.Floor))
	moduleEntry(m, "ceil", mathToInt("ceil", math.Ceil))
	moduleEntry(m, "round", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 1 {
			return nil, runtimeFault("round expects 1 argument, got %d", len(args))
		}
		v, ok := numericValue(args[0])
		if !ok {
			return nil, typeFault("round expects a number, got %s", typeName(args[0]))
		}
		return &Integer{Value: int64(math.Round(v))}, nil
	})
	moduleEntry(m, "sin", mathFn("sin", math.Sin))
	moduleEntry(m, "cos", mathFn("cos", math.Cos))
	moduleEntry(m, "tan", mathFn("tan", math.Tan))
	moduleEntry(m, "log", mathFn("log", math.Log))
	moduleEntry(m, "log2", mathFn("log2", math.Log2))
	moduleEntry(m, "log10", mathFn("log10", math.Log10))
	moduleEntry(m, "min", extremum("min", func(a, b float64) bool { return a < b }))
	moduleEntry(m, "max", extremum("max", func(a, b float64) bool { return a > b }))
	moduleValue(m, "inf", &Float{Value: math.Inf(1)})
	moduleValue(m, "nan", &Float{Value: math.NaN()})
	return m
}

func jsonModule() *Map {
	m := NewMap()
	moduleEntry(m, "parse", func(in *Interpreter, args []Object) (Object, error) {
		text, err := oneString("parse", args)
		if err != nil {
			return nil, err
		}
		return jsonParse(text)
	})
	moduleEntry(m, "string", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 1 {
			return nil, runtimeFault("string expects 1 argument, got %d", len(args))
		}
		return jsonString(args[0])
	})
	return m
}

func osModule() *Map {
	m := NewMap()
	moduleEntry(m, "env", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) < 1 || len(args) > 2 {
			return nil, runtimeFault("env expects 1 to 2 arguments, got %d", len(args))
		}
		key, ok := args[0].(*String)
		if !ok {
			return nil, typeFault("env key must be a string, got %s", typeName(args[0]))
		}
		if value, found := os.LookupEnv(key.Value); found {
			return &String{Value: value}, nil
		}
		if len(args) == 2 {
			return args[1], nil
		}
		return NULL, nil
	})
	moduleEntry(m, "cwd", func(in *Interpreter, args []Object) (Object, error) {
		dir, err := os.Getwd()
		if err != nil {
			return nil, runtimeFault("%s", err.Error())
		}
		return &String{Value: dir}, nil
	})
	moduleEntry(m, "args", func(in *Interpreter, args []Object) (Object, error) {
		out := make([]Object, len(ScriptArgs))
		for i, arg := range ScriptArgs {
			out[i] = &String{Value: arg}
		}
		return &List{Elements: out}, nil
	})
	moduleEntry(m, "exec", builtinExec)
	moduleEntry(m, "ls", func(in *Interpreter, args []Object) (Object, error) {
		dir := "."
		if len(args) > 0 {
			s, ok := args[0].(*String)
			if !ok {
				return nil, typeFault("ls expects a string, got %s", typeName(args[0]))
			}
			dir = s.Value
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, runtimeFault("%s", err.Error())
		}
		out := make([]Object, len(entries))
		for i, entry := range entries {
			out[i] = &String{Value: entry.Name()}
		}
		return &List{Elements: out}, nil
	})
	moduleEntry(m, "mkdir", func(in *Interpreter, args []Object) (Object, error) {
		path, err := oneString("mkdir", args)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, runtimeFault("%s", err.Error())
		}
		return NULL, nil
	})
	moduleEntry(m, "rm", func(in *Interpreter, args []Object) (Object, error) {
		path, err := oneString("rm", args)
		if err != nil {
			return nil, err
		}
		if err := os.Remove(path); err != nil {
			return nil, runtimeFault("%s", err.Error())
		}
		return NULL, nil
	})
	moduleEntry(m, "rename", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 2 {
			return nil, runtimeFault("rename expects 2 arguments, got %d", len(args))
		}
		from, ok1 := args[0].(*String)
		to, ok2 := args[1].(*String)
		if !ok1 || !ok2 {
			return nil, typeFault("rename expects string paths")
		}
		if err := os.Rename(from.Value, to.Value); err != nil {
			return nil, runtimeFault("%s", err.Error())
		}
		return NULL, nil
	})
	moduleEntry(m, "home", func(in *Interpreter, args []Object) (Object, error) {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, runtimeFault("%s", err.Error())
		}
		return &String{Value: home}, nil
	})
	moduleValue(m, "sep", &String{Value: string(os.PathSeparator)})
	return m
}

func pathModule() *Map {
	m := NewMap()
	moduleEntry(m, "join", func(in *Interpreter, args []Object) (Object, error) {
		parts := make([]string, len(args))
		for i, arg := range args {
			s, ok := arg.(*String)
			if !ok {
				return nil, typeFault("join expects strings, got %s", typeName(arg))
			}
			parts[i] = s.Value
		}
		return &String{Value: filepath.Join(parts...)}, nil
	})
	moduleEntry(m, "dir", func(in *Interpreter, args []Object) (Object, error) {
		p, err := oneString("dir", args)
		if err != nil {
			return nil, err
		}
		return &String{Value: filepath.Dir(p)}, nil
	})
	moduleEntry(m, "name", func(in *Interpreter, args []Object) (Object, error) {
		p, err := oneString("name", args)
		if err != nil {
			return nil, err
		}
		return &String{Value: filepath.Base(p)}, nil
	})
	moduleEntry(m, "stem", func(in *Interpreter, args []Object) (Object, error) {
		p, err := oneString("stem", args)
		if err != nil {
			return nil, err
		}
		return &String{Value: stemOf(p)}, nil
	})
	moduleEntry(m, "ext", func(in *Interpreter, args []Object) (Object, error) {
		p, err := oneString("ext", args)
		if err != nil {
			return nil, err
		}
		return &String{Value: filepath.Ext(p)}, nil
	})
	moduleEntry(m, "exists", func(in *Interpreter, args []Object) (Object, error) {
		p, err := oneString("exists", args)
		if err != nil {
			return nil, err
		}
		_, statErr := os.Stat(p)
		return boolObject(statErr == nil), nil
	})
	moduleEntry(m, "is_file", func(in *Interpreter, args []Object) (Object, error) {
		p, err := oneString("is_file", args)
		if err != nil {
			return nil, err
		}
		info, statErr := os.Stat(p)
		return boolObject(statErr == nil && !info.IsDir()), nil
	})
	moduleEntry(m, "is_dir", func(in *Interpreter, args []Object) (Object, error) {
		p, err := oneString("is_dir", args)
		if err != nil {
			return nil, err
		}
		info, statErr := os.Stat(p)
		return boolObject(statErr == nil && info.IsDir()), nil
	})
	moduleEntry(m, "abs", func(in *Interpreter, args []Object) (Object, error) {
		p, err := oneString("abs", args)
		if err != nil {
			return nil, err
		}
		abs, absErr := filepath.Abs(p)
		if absErr != nil {
			return nil, runtimeFault("%s", absErr.Error())
		}
		return &String{Value: abs}, nil
	})
	return m
}

func randomModule() *Map {
	m := NewMap()
	moduleEntry(m, "int", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 2 {
			return nil, runtimeFault("int expects 2 arguments, got %d", len(args))
		}
		lo, ok1 := args[0].(*Integer)
		hi, ok2 := args[1].(*Integer)
		if !ok1 || !ok2 {
			return nil, typeFault("int expects int bounds")
		}
		return &Integer{Value: randInt(lo.Value, hi.Value)}, nil
	})
	moduleEntry(m, "float", func(in *Interpreter, args []Object) (Object, error) {
		return &Float{Value: rand.Float64()}, nil
	})
	moduleEntry(m, "choice", func(in *Interpreter, args []Object) (Object, error) {
		list, err := oneList("choice", args)
		if err != nil {
			return nil, err
		}
		if len(list.Elements) == 0 {
			return nil, runtimeFault("choice from empty list")
		}
		return list.Elements[rand.Intn(len(list.Elements))], nil
	})
	moduleEntry(m, "shuffle", func(in *Interpreter, args []Object) (Object, error) {
		list, err := oneList("shuffle", args)
		if err != nil {
			return nil, err
		}
		rand.Shuffle(len(list.Elements), func(i, j int) {
			list.Elements[i], list.Elements[j] = list.Elements[j], list.Elements[i]
		})
		return list, nil
	})
	moduleEntry(m, "sample", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 2 {
			return nil, runtimeFault("sample expects 2 arguments, got %d", len(args))
		}
		list, ok := args[0].(*List)
		if !ok {
			return nil, typeFault("sample expects a list, got %s", typeName(args[0]))
		}
		n, ok := args[1].(*Integer)
		if !ok {
			return nil, typeFault("sample size must be an int, got %s", typeName(args[1]))
		}
		if n.Value < 0 || n.Value > int64(len(list.Elements)) {
			return nil, runtimeFault("sample larger than population")
		}
		indexes := rand.Perm(len(list.Elements))[:n.Value]
		out := make([]Object, n.Value)
		for i, idx := range indexes {
			out[i] = list.Elements[idx]
		}
		return &List{Elements: out}, nil
	})
	moduleEntry(m, "seed", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 1 {
			return nil, runtimeFault("seed expects 1 argument, got %d", len(args))
		}
		n, ok := intValue(args[0])
		if !ok {
			return nil, typeFault("seed expects an int, got %s", typeName(args[0]))
		}
		rand.Seed(n)
		return NULL, nil
	})
	return m
}

func timeModule() *Map {
	m := NewMap()
	moduleEntry(m, "now", func(in *Interpreter, args []Object) (Object, error) {
		return &Float{Value: float64(time.Now().UnixNano()) / 1e9}, nil
	})
	moduleEntry(m, "sleep", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 1 {
			return nil, runtimeFault("sleep expects 1 argument, got %d", len(args))
		}
		seconds, ok := numericValue(args[0])
		if !ok {
			return nil, typeFault("sleep expects a number, got %s", typeName(args[0]))
		}
		time.Sleep(time.Duration(seconds * float64(time.Second)))
		return NULL, nil
	})
	moduleEntry(m, "format", func(in *Interpreter, args []Object) (Object, error) {
		layout := "2006-01-02 15:04:05"
		if len(args) == 1 {
			s, ok := args[0].(*String)
			if !ok {
				return nil, typeFault("format expects a string, got %s", typeName(args[0]))
			}
			layout = strftimeToGo(s.Value)
		}
		return &String{Value: time.Now().Format(layout)}, nil
	})
	moduleEntry(m, "clock", func(in *Interpreter, args []Object) (Object, error) {
		return &Float{Value: float64(time.Now().UnixNano()) / 1e9}, nil
	})
	return m
}

// strftimeToGo translates the common strftime verbs into a Go time
// layout.
func strftimeToGo(format string) string {
	replacer := strings.NewReplacer(
		"%Y", "2006",
		"%m", "01",
		"%d", "02",
		"%H", "15",
		"%M", "04",
		"%S", "05",
		"%y", "06",
		"%p", "PM",
		"%b", "Jan",
		"%B", "January",
		"%a", "Mon",
		"%A", "Monday",
	)
	return replacer.Replace(format)
}

func cryptoModule(interp *Interpreter) *Map {
	m := NewMap()
	digestEntry := func(name, algo string) {
		moduleEntry(m, name, func(in *Interpreter, args []Object) (Object, error) {
			text, err := oneString(name, args)
			if err != nil {
				return nil, err
			}
			digest, err := hashDigest(algo, text)
			if err != nil {
				return nil, err
			}
			return &String{Value: digest}, nil
		})
	}
	digestEntry("sha256", "sha256")
	digestEntry("md5", "md5")
	digestEntry("sha1", "sha1")
	moduleEntry(m, "encode64", builtinEncode64)
	moduleEntry(m, "decode64", builtinDecode64)
	moduleEntry(m, "uuid", func(in *Interpreter, args []Object) (Object, error) {
		return &String{Value: newUUID()}, nil
	})
	moduleEntry(m, "bcrypt", builtinBcryptHash)
	moduleEntry(m, "bcrypt_verify", builtinBcryptVerify)
	return m
}

func regexModule() *Map {
	m := NewMap()
	compile := func(name string, args []Object) (*regexp.Regexp, []string, error) {
		parts := make([]string, len(args))
		for i, arg := range args {
			s, ok := arg.(*String)
			if !ok {
				return nil, nil, typeFault("%s expects strings, got %s", name, typeName(arg))
			}
			parts[i] = s.Value
		}
		re, err := regexp.Compile(parts[0])
		if err != nil {
			return nil, nil, runtimeFault("Invalid pattern: %s", err.Error())
		}
		return re, parts, nil
	}
	moduleEntry(m, "match", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 2 {
			return nil, runtimeFault("match expects 2 arguments, got %d", len(args))
		}
		re, parts, err := compile("match", args)
		if err != nil {
			return nil, err
		}
		loc := re.FindStringIndex(parts[1])
		return boolObject(loc != nil && loc[0] == 0), nil
	})
	moduleEntry(m, "search", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 2 {
			return nil, runtimeFault("search expects 2 arguments, got %d", len(args))
		}
		re, parts, err := compile("search", args)
		if err != nil {
			return nil, err
		}
		return boolObject(re.MatchString(parts[1])), nil
	})
	moduleEntry(m, "find", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 2 {
			return nil, runtimeFault("find expects 2 arguments, got %d", len(args))
		}
		re, parts, err := compile("find", args)
		if err != nil {
			return nil, err
		}
		matches := re.FindAllString(parts[1], -1)
		out := make([]Object, len(matches))
		for i, match := range matches {
			out[i] = &String{Value: match}
		}
		return &List{Elements: out}, nil
	})
	moduleEntry(m, "replace", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 3 {
			return nil, runtimeFault("replace expects 3 arguments, got %d", len(args))
		}
		re, parts, err := compile("replace", args)
		if err != nil {
			return nil, err
		}
		return &String{Value: re.ReplaceAllString(parts[2], parts[1])}, nil
	})
	moduleEntry(m, "split", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 2 {
			return nil, runtimeFault("split expects 2 arguments, got %d", len(args))
		}
		re, parts, err := compile("split", args)
		if err != nil {
			return nil, err
		}
		pieces := re.Split(parts[1], -1)
		out := make([]Object, len(pieces))
		for i, piece := range pieces {
			out[i] = &String{Value: piece}
		}
		return &List{Elements: out}, nil
	})
	moduleEntry(m, "groups", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 2 {
			return nil, runtimeFault("groups expects 2 arguments, got %d", len(args))
		}
		re, parts, err := compile("groups", args)
		if err != nil {
			return nil, err
		}
		match := re.FindStringSubmatch(parts[1])
		if match == nil {
			return &List{}, nil
		}
		out := make([]Object, 0, len(match)-1)
		for _, group := range match[1:] {
			out = append(out, &String{Value: group})
		}
		return &List{Elements: out}, nil
	})
	return m
}
