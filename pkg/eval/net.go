package eval

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var fetchClient = &http.Client{Timeout: 30 * time.Second}

// builtinFetch performs an HTTP request and returns the response body.
// Options: {method, headers, body}; map and list bodies are sent as
// JSON.
func builtinFetch(in *Interpreter, args []Object) (Object, error) {
	if len(args) < 1 || len(args) > 2 {
		return nil, runtimeFault("fetch expects 1 to 2 arguments, got %d", len(args))
	}
	url, ok := args[0].(*String)
	if !ok {
		return nil, typeFault("fetch url must be a string, got %s", typeName(args[0]))
	}

	method := "GET"
	headers := map[string]string{}
	var body io.Reader

	if len(args) == 2 {
		if options, ok := args[1].(*Map); ok {
			if m, found := options.Get(&String{Value: "method"}); found {
				if s, ok := m.(*String); ok {
					method = strings.ToUpper(s.Value)
				}
			}
			if h, found := options.Get(&String{Value: "headers"}); found {
				if hm, ok := h.(*Map); ok {
					for _, hk := range hm.Order {
						pair := hm.Pairs[hk]
						headers[pair.Key.Inspect()] = in.displayOf(pair.Value)
					}
				}
			}
			if b, found := options.Get(&String{Value: "body"}); found {
				switch b.(type) {
				case *Map, *List:
					encoded, err := jsonString(b)
					if err != nil {
						return nil, err
					}
					body = strings.NewReader(encoded.(*String).Value)
					if _, set := headers["Content-Type"]; !set {
						headers["Content-Type"] = "application/json"
					}
				case *Null:
				default:
					body = strings.NewReader(in.displayOf(b))
				}
			}
		}
	}

	req, err := http.NewRequest(method, url.Value, body)
	if err != nil {
		return nil, runtimeFault("fetch failed: %s", err.Error())
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	resp, err := fetchClient.Do(req)
	if err != nil {
		return nil, runtimeFault("fetch failed: %s", err.Error())
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, runtimeFault("fetch failed: %s", err.Error())
	}
	return &String{Value: string(data)}, nil
}

// builtinServe runs a blocking HTTP server. The handler receives a
// request map and replies with either a response map {status, body,
// type} or any value displayed as the body.
func builtinServe(in *Interpreter, args []Object) (Object, error) {
	if len(args) != 2 {
		return nil, runtimeFault("serve expects 2 arguments, got %d", len(args))
	}
	port, ok := args[0].(*Integer)
	if !ok {
		return nil, typeFault("serve port must be an int, got %s", typeName(args[0]))
	}
	handler := args[1]

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		request := NewMap()
		request.Set(&String{Value: "method"}, &String{Value: r.Method})
		request.Set(&String{Value: "path"}, &String{Value: r.URL.RequestURI()})
		headerMap := NewMap()
		for key := range r.Header {
			headerMap.Set(&String{Value: key}, &String{Value: r.Header.Get(key)})
		}
		request.Set(&String{Value: "headers"}, headerMap)
		if r.Method != http.MethodGet {
			data, _ := io.ReadAll(r.Body)
			request.Set(&String{Value: "body"}, &String{Value: string(data)})
		}

		response, err := in.callValue(handler, []Object{request})
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, err.Error())
			return
		}

		status := http.StatusOK
		body := ""
		contentType := "text/html"
		if m, ok := response.(*Map); ok {
			if s, found := m.Get(&String{Value: "status"}); found {
				if n, ok := s.(*Integer); ok {
					status = int(n.Value)
				}
			}
			if b, found := m.Get(&String{Value: "body"}); found {
				body = in.displayOf(b)
			}
			if t, found := m.Get(&String{Value: "type"}); found {
				contentType = in.displayOf(t)
			}
		} else {
			body = in.displayOf(response)
		}

		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		fmt.Fprint(w, body)
		fmt.Fprintf(in.Stdout, "[serve] %s %s\n", r.Method, r.URL.Path)
	})

	fmt.Fprintf(in.Stdout, "Clarity server running on port %d\n", port.Value)
	if err := http.ListenAndServe(fmt.Sprintf(":%d", port.Value), mux); err != nil {
		return nil, runtimeFault("serve failed: %s", err.Error())
	}
	return NULL, nil
}
