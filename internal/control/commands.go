package control

import (
	"encoding/json"
	"fmt"

	"github.com/Boom-Hacker/nbfc-linux/internal/daemon"
)

type errorReply struct {
	Error string `json:"Error"`
}

type okReply struct {
	Status string `json:"Status"`
}

// handleMessage decodes one request frame, dispatches it under the
// service lock, and returns the reply frame to send back. It never
// panics on malformed input; every failure path becomes an errorReply.
func handleMessage(svc *daemon.Service, raw []byte) []byte {
	var req map[string]json.RawMessage
	if err := json.Unmarshal(raw, &req); err != nil {
		return marshalError("Not a JSON object")
	}

	cmdRaw, ok := req["Command"]
	if !ok {
		return marshalError("Missing 'Command' field")
	}
	var cmd string
	if err := json.Unmarshal(cmdRaw, &cmd); err != nil {
		return marshalError("Command: not a string")
	}

	svc.Lock()
	defer svc.Unlock()

	var reply interface{}
	var err error
	switch cmd {
	case "set-fan-speed":
		reply, err = commandSetFanSpeed(svc, req)
	case "status":
		reply, err = commandStatus(svc, req)
	default:
		err = fmt.Errorf("Invalid command")
	}
	if err != nil {
		return marshalError(err.Error())
	}

	payload, err := json.Marshal(reply)
	if err != nil {
		return marshalError(err.Error())
	}
	return payload
}

func marshalError(msg string) []byte {
	payload, _ := json.Marshal(errorReply{Error: msg})
	return payload
}

// commandSetFanSpeed mirrors Server_Command_Set_Fan: Fan defaults to -1
// (every fan), Speed is either the string "auto" or a number in [0, 100],
// and any key besides Command/Fan/Speed is rejected outright.
func commandSetFanSpeed(svc *daemon.Service, req map[string]json.RawMessage) (interface{}, error) {
	const speedUnset = -2.0

	fanIndex := -1
	speed := speedUnset
	auto := false

	for key, raw := range req {
		switch key {
		case "Command":
			continue
		case "Fan":
			var f int
			if err := json.Unmarshal(raw, &f); err != nil {
				return nil, fmt.Errorf("Fan: Not an integer")
			}
			fanIndex = f
			if fanIndex < 0 {
				return nil, fmt.Errorf("Fan: Cannot be negative")
			}
			if fanIndex >= svc.FanCount() {
				return nil, fmt.Errorf("Fan: No such fan available")
			}
		case "Speed":
			var word string
			if err := json.Unmarshal(raw, &word); err == nil {
				if word != "auto" {
					return nil, fmt.Errorf("Speed: Invalid type. Either float or 'auto'")
				}
				auto = true
				speed = -1
				continue
			}
			var f float64
			if err := json.Unmarshal(raw, &f); err != nil {
				return nil, fmt.Errorf("Speed: Invalid type. Either float or 'auto'")
			}
			if f < 0.0 || f > 100.0 {
				return nil, fmt.Errorf("Speed: Invalid value")
			}
			speed = f
		default:
			return nil, fmt.Errorf("Unknown arguments")
		}
	}

	if speed == speedUnset {
		return nil, fmt.Errorf("Missing argument: Speed")
	}

	if err := svc.SetFanSpeed(fanIndex, auto, speed); err != nil {
		return nil, err
	}
	return okReply{Status: "OK"}, nil
}

// commandStatus mirrors Server_Command_Status: it takes no arguments
// beyond Command, and returns a full snapshot of the running service.
func commandStatus(svc *daemon.Service, req map[string]json.RawMessage) (interface{}, error) {
	if len(req) > 1 {
		return nil, fmt.Errorf("Unknown arguments")
	}
	return svc.Status(), nil
}
