package eval

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func newUUID() string {
	var buf [16]byte
	rand.Read(buf[:])
	buf[6] = (buf[6] & 0x0f) | 0x40
	buf[8] = (buf[8] & 0x3f) | 0x80
	s := hex.EncodeToString(buf[:])
	return fmt.Sprintf("%s-%s-%s-%s-%s", s[0:8], s[8:12], s[12:16], s[16:20], s[20:32])
}

func builtinBcryptHash(in *Interpreter, args []Object) (Object, error) {
	password, err := oneString("bcrypt", args)
	if err != nil {
		return nil, err
	}
	hashed, hashErr := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if hashErr != nil {
		return nil, runtimeFault("bcrypt failed: %s", hashErr.Error())
	}
	return &String{Value: string(hashed)}, nil
}

func builtinBcryptVerify(in *Interpreter, args []Object) (Object, error) {
	if len(args) != 2 {
		return nil, runtimeFault("bcrypt_verify expects 2 arguments, got %d", len(args))
	}
	hashed, ok1 := args[0].(*String)
	password, ok2 := args[1].(*String)
	if !ok1 || !ok2 {
		return nil, typeFault("bcrypt_verify expects strings")
	}
	err := bcrypt.CompareHashAndPassword([]byte(hashed.Value), []byte(password.Value))
	return boolObject(err == nil), nil
}

// jwtModule exposes HMAC token signing and verification. Payloads are
// maps; expiry is a duration string like "24h".
func jwtModule() *Map {
	m := NewMap()
	moduleEntry(m, "sign", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) < 2 || len(args) > 3 {
			return nil, runtimeFault("sign expects 2 to 3 arguments, got %d", len(args))
		}
		payload, ok := args[0].(*Map)
		if !ok {
			return nil, typeFault("sign payload must be a map, got %s", typeName(args[0]))
		}
		secret, ok := args[1].(*String)
		if !ok {
			return nil, typeFault("sign secret must be a string, got %s", typeName(args[1]))
		}
		expiresIn := "24h"
		if len(args) == 3 {
			s, ok := args[2].(*String)
			if !ok {
				return nil, typeFault("sign expiry must be a string, got %s", typeName(args[2]))
			}
			expiresIn = s.Value
		}
		duration, err := time.ParseDuration(expiresIn)
		if err != nil {
			return nil, runtimeFault("invalid duration: %s", expiresIn)
		}

		claims := jwt.MapClaims{}
		native, ok := toNative(payload).(map[string]interface{})
		if !ok {
			return nil, typeFault("sign payload must be a map")
		}
		for key, value := range native {
			claims[key] = value
		}
		claims["exp"] = time.Now().Add(duration).Unix()

		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString([]byte(secret.Value))
		if err != nil {
			return nil, runtimeFault("sign failed: %s", err.Error())
		}
		return &String{Value: signed}, nil
	})
	moduleEntry(m, "verify", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 2 {
			return nil, runtimeFault("verify expects 2 arguments, got %d", len(args))
		}
		tokenString, ok1 := args[0].(*String)
		secret, ok2 := args[1].(*String)
		if !ok1 || !ok2 {
			return nil, typeFault("verify expects strings")
		}
		token, err := jwt.Parse(tokenString.Value, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret.Value), nil
		})
		if err != nil {
			return nil, runtimeFault("invalid token: %s", err.Error())
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !token.Valid {
			return nil, runtimeFault("invalid token")
		}
		return fromNative(map[string]interface{}(claims)), nil
	})
	moduleEntry(m, "decode", func(in *Interpreter, args []Object) (Object, error) {
		tokenString, err := oneString("decode", args)
		if err != nil {
			return nil, err
		}
		token, _, parseErr := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
		if parseErr != nil {
			return nil, runtimeFault("invalid token: %s", parseErr.Error())
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return nil, runtimeFault("invalid token")
		}
		return fromNative(map[string]interface{}(claims)), nil
	})
	return m
}
