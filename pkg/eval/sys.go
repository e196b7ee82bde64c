package eval

import (
	"bytes"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"hash"
	"os/exec"
	"strings"
)

func builtinExec(in *Interpreter, args []Object) (Object, error) {
	cmd, err := oneString("exec", args)
	if err != nil {
		return nil, err
	}
	var stdout bytes.Buffer
	c := exec.Command("sh", "-c", cmd)
	c.Stdout = &stdout
	c.Run()
	return &String{Value: strings.TrimSpace(stdout.String())}, nil
}

func builtinExecFull(in *Interpreter, args []Object) (Object, error) {
	cmd, err := oneString("exec_full", args)
	if err != nil {
		return nil, err
	}
	var stdout, stderr bytes.Buffer
	c := exec.Command("sh", "-c", cmd)
	c.Stdout = &stdout
	c.Stderr = &stderr
	runErr := c.Run()
	code := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		} else {
			code = -1
		}
	}
	result := NewMap()
	result.Set(&String{Value: "stdout"}, &String{Value: stdout.String()})
	result.Set(&String{Value: "stderr"}, &String{Value: stderr.String()})
	result.Set(&String{Value: "exit_code"}, &Integer{Value: int64(code)})
	return result, nil
}

func builtinHash(in *Interpreter, args []Object) (Object, error) {
	if len(args) < 1 || len(args) > 2 {
		return nil, runtimeFault("hash expects 1 to 2 arguments, got %d", len(args))
	}
	text, ok := args[0].(*String)
	if !ok {
		return nil, typeFault("hash expects a string, got %s", typeName(args[0]))
	}
	algo := "sha256"
	if len(args) == 2 {
		a, ok := args[1].(*String)
		if !ok {
			return nil, typeFault("hash algorithm must be a string, got %s", typeName(args[1]))
		}
		algo = a.Value
	}
	digest, err := hashDigest(algo, text.Value)
	if err != nil {
		return nil, err
	}
	return &String{Value: digest}, nil
}

func hashDigest(algo, text string) (string, error) {
	var h hash.Hash
	switch algo {
	case "sha256":
		h = sha256.New()
	case "sha1":
		h = sha1.New()
	case "sha512":
		h = sha512.New()
	case "md5":
		h = md5.New()
	default:
		return "", runtimeFault("Unknown hash algorithm '%s'", algo)
	}
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil)), nil
}

func builtinEncode64(in *Interpreter, args []Object) (Object, error) {
	text, err := oneString("encode64", args)
	if err != nil {
		return nil, err
	}
	return &String{Value: base64.StdEncoding.EncodeToString([]byte(text))}, nil
}

func builtinDecode64(in *Interpreter, args []Object) (Object, error) {
	text, err := oneString("decode64", args)
	if err != nil {
		return nil, err
	}
	decoded, decodeErr := base64.StdEncoding.DecodeString(text)
	if decodeErr != nil {
		return nil, runtimeFault("Invalid base64: %s", decodeErr.Error())
	}
	return &String{Value: string(decoded)}, nil
}
