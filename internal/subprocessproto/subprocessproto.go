// Package subprocessproto defines the argv/stdout contract between the
// worker process and the `prove-fib-subprocess` child it forks to run the
// guest program in isolation, so that a crash or OOM inside the prover
// never takes the worker down with it.
package subprocessproto

import "encoding/json"

// ExitCodeGuestProgramError is returned by the subprocess when it cannot run
// the guest program, which happens when its --inputs JSON does not decode
// (a cobra usage error such as a missing flag exits 1 instead). It must
// stay distinct from 0 and 1 so the parent can tell "proving failed"
// apart from "the subprocess binary couldn't even start".
const ExitCodeGuestProgramError = 17

// Request is the JSON payload passed to prove-fib-subprocess via --inputs.
type Request struct {
	N     uint32 `json:"n"`
	InitA uint32 `json:"init_a"`
	InitB uint32 `json:"init_b"`
}

// Encode marshals a Request to the JSON string expected on argv.
func (r Request) Encode() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeRequest parses the --inputs argument back into a Request.
func DecodeRequest(s string) (Request, error) {
	var r Request
	err := json.Unmarshal([]byte(s), &r)
	return r, err
}
