package eval

import (
	"github.com/gorilla/websocket"
)

// wsModule provides a WebSocket client. connect returns a connection
// map with send, recv and close members.
func wsModule() *Map {
	m := NewMap()
	moduleEntry(m, "connect", func(in *Interpreter, args []Object) (Object, error) {
		url, err := oneString("connect", args)
		if err != nil {
			return nil, err
		}
		conn, _, dialErr := websocket.DefaultDialer.Dial(url, nil)
		if dialErr != nil {
			return nil, runtimeFault("connect failed: %s", dialErr.Error())
		}
		return wsConnMap(conn), nil
	})
	return m
}

func wsConnMap(conn *websocket.Conn) *Map {
	m := NewMap()
	moduleEntry(m, "send", func(in *Interpreter, args []Object) (Object, error) {
		if len(args) != 1 {
			return nil, runtimeFault("send expects 1 argument, got %d", len(args))
		}
		text := in.displayOf(args[0])
		if err := conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
			return nil, runtimeFault("send failed: %s", err.Error())
		}
		return TRUE, nil
	})
	moduleEntry(m, "recv", func(in *Interpreter, args []Object) (Object, error) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil, runtimeFault("recv failed: %s", err.Error())
		}
		return &String{Value: string(data)}, nil
	})
	moduleEntry(m, "close", func(in *Interpreter, args []Object) (Object, error) {
		conn.Close()
		return NULL, nil
	})
	return m
}
