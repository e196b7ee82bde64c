package eval

import (
	gomail "gopkg.in/gomail.v2"
)

// mailModule sends email over SMTP. send takes a single map:
// {host, port, user, password, from, to, subject, body, html}.
func mailModule() *Map {
	m := NewMap()
	moduleEntry(m, "send", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 1 {
			return nil, runtimeFault("send expects 1 argument, got %d", len(args))
		}
		options, ok := args[0].(*Map)
		if !ok {
			return nil, typeFault("send expects a map, got %s", typeName(args[0]))
		}

		str := func(key, fallback string) string {
			if value, found := options.Get(&String{Value: key}); found {
				if s, ok := value.(*String); ok {
					return s.Value
				}
			}
			return fallback
		}
		port := int64(587)
		if value, found := options.Get(&String{Value: "port"}); found {
			if n, ok := value.(*Integer); ok {
				port = n.Value
			}
		}

		host := str("host", "")
		if host == "" {
			return nil, runtimeFault("send requires 'host'")
		}
		to := str("to", "")
		if to == "" {
			return nil, runtimeFault("send requires 'to'")
		}
		user := str("user", "")
		from := str("from", user)

		msg := gomail.NewMessage()
		msg.SetHeader("From", from)
		msg.SetHeader("To", to)
		msg.SetHeader("Subject", str("subject", ""))
		if html := str("html", ""); html != "" {
			msg.SetBody("text/html", html)
		} else {
			msg.SetBody("text/plain", str("body", ""))
		}

		dialer := gomail.NewDialer(host, int(port), user, str("password", ""))
		if err := dialer.DialAndSend(msg); err != nil {
			return nil, runtimeFault("send failed: %s", err.Error())
		}
		return TRUE, nil
	})
	return m
}
