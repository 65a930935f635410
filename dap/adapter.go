// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package dap

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/codx-dev/zkdbg/debugger"
)

// Capabilities mirrors the subset of the DAP `initialize` response this
// adapter actually backs with real behavior.
type Capabilities struct {
	SupportsConfigurationDoneRequest   bool `json:"supportsConfigurationDoneRequest"`
	SupportsStepBack                   bool `json:"supportsStepBack"`
	SupportsRestartRequest             bool `json:"supportsRestartRequest"`
	SupportsLoadedSourcesRequest       bool `json:"supportsLoadedSourcesRequest"`
	SupportsBreakpointLocationsRequest bool `json:"supportsBreakpointLocationsRequest"`
}

func capabilities() Capabilities {
	return Capabilities{
		SupportsConfigurationDoneRequest:   true,
		SupportsStepBack:                   true,
		SupportsRestartRequest:             true,
		SupportsLoadedSourcesRequest:       true,
		SupportsBreakpointLocationsRequest: true,
	}
}

// Session is one accepted DAP connection: its own debugger, its own
// cursor, and its own logger prefix. No state is shared across
// sessions.
type Session struct {
	ID     uuid.UUID
	logger Logger

	// PresetPath, when set before initialize is handled, is loaded into
	// the freshly opened debugger's breakpoint registry. Set it right
	// after NewSession if the daemon was started with a breakpoint
	// preset file.
	PresetPath string

	mu   sync.Mutex
	conn net.Conn
	seq  int
	dbg  *debugger.Debugger
}

// Logger is the subset of *log.Logger the adapter needs; satisfied
// directly by the standard library type.
type Logger interface {
	Printf(format string, args ...interface{})
}

// NewSession wraps an accepted connection with a fresh, uninitialized
// debugging session tagged with id.
func NewSession(id uuid.UUID, conn net.Conn, logger Logger) *Session {
	return &Session{ID: id, logger: logger, conn: conn}
}

// Serve reads and dispatches requests from the connection until it
// errors or the peer disconnects. It never returns a non-nil error for
// a clean EOF.
func (s *Session) Serve() error {
	r := bufio.NewReader(s.conn)
	for {
		req, err := ReadRequest(r)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("dap[%s]: reading request: %w", s.ID, err)
		}
		s.logger.Printf("dap[%s]: request %s", s.ID, req.Command)
		s.handle(req)
	}
}

func (s *Session) nextSeq() int {
	s.seq++
	return s.seq
}

func (s *Session) respond(req Request, success bool, body interface{}, errMsg string) {
	resp := Response{
		Seq:        s.nextSeq(),
		Type:       "response",
		RequestSeq: req.Seq,
		Success:    success,
		Command:    req.Command,
		Message:    errMsg,
		Body:       body,
	}
	if err := WriteMessage(s.conn, &resp); err != nil {
		s.logger.Printf("dap[%s]: writing response: %v", s.ID, err)
	}
}

func (s *Session) event(name string, body interface{}) {
	ev := Event{Seq: s.nextSeq(), Type: "event", Event: name, Body: body}
	if err := WriteMessage(s.conn, &ev); err != nil {
		s.logger.Printf("dap[%s]: writing event: %v", s.ID, err)
	}
}

func (s *Session) outputError(err error) {
	s.event("output", map[string]interface{}{
		"category": "stderr",
		"output":   err.Error() + "\n",
	})
}

func notInitialized() error {
	return errors.New("the debugger is not initialized with a CDF file")
}

func (s *Session) handle(req Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch req.Command {
	case "initialize":
		s.initialize(req)
	case "attach":
		s.respond(req, true, nil, "")
	case "disconnect":
		s.respond(req, true, nil, "")
	case "continue":
		s.requireDebugger(req, func() { s.transition(req, s.dbg.Cont, "continue", continueBody()) })
	case "reverseContinue":
		s.requireDebugger(req, func() { s.transition(req, s.dbg.Turn, "reverseContinue", continueBody()) })
	case "next":
		s.requireDebugger(req, func() { s.transition(req, s.dbg.Step, "next", nil) })
	case "stepBack":
		s.requireDebugger(req, func() { s.transition(req, s.dbg.Afore, "stepBack", nil) })
	case "restart":
		s.requireDebugger(req, s.restart)
	case "goto":
		s.requireDebugger(req, func() { s.gotoRequest(req) })
	case "setBreakpoints":
		s.requireDebugger(req, func() { s.setBreakpoints(req) })
	case "breakpointLocations":
		s.requireDebugger(req, func() { s.breakpointLocations(req) })
	case "evaluate":
		s.requireDebugger(req, func() { s.evaluate(req) })
	case "loadedSources":
		s.requireDebugger(req, func() { s.loadedSources(req) })
	case "customAddBreakpoint":
		s.requireDebugger(req, func() { s.addBreakpoint(req) })
	case "customRemoveBreakpoint":
		s.requireDebugger(req, func() { s.removeBreakpoint(req) })
	default:
		s.logger.Printf("dap[%s]: unhandled command %q", s.ID, req.Command)
	}
}

// requireDebugger runs fn only if a CDF has already been loaded via
// initialize; otherwise it surfaces the uninitialized error as an
// Output event and sends no response, per the adapter's uninitialized
// safeguard.
func (s *Session) requireDebugger(req Request, fn func()) {
	if s.dbg == nil {
		s.outputError(notInitialized())
		return
	}
	fn()
}

func continueBody() interface{} {
	return map[string]interface{}{"allThreadsContinued": true}
}

type initializeArguments struct {
	AdapterID string `json:"adapterId"`
}

func (s *Session) initialize(req Request) {
	var args initializeArguments
	if err := json.Unmarshal(req.Arguments, &args); err != nil {
		s.respond(req, false, nil, err.Error())
		return
	}

	dbg, err := debugger.Open(args.AdapterID)
	if err != nil {
		s.respond(req, false, nil, err.Error())
		return
	}
	s.dbg = dbg

	if s.PresetPath != "" {
		if err := debugger.LoadPreset(s.PresetPath, s.dbg.Breakpoints()); err != nil {
			s.outputError(fmt.Errorf("loading breakpoint preset: %w", err))
		}
	}

	s.emitStopped("initialized", nil)
	s.respond(req, true, capabilities(), "")
}

func (s *Session) restart(req Request) {
	if _, err := s.dbg.Goto(0); err != nil {
		s.outputError(err)
		return
	}
	s.event("process", map[string]interface{}{
		"name":           fmt.Sprintf("zkdbg-session-%s", s.ID),
		"isLocalProcess": true,
		"startMethod":    "launch",
	})
	s.emitStopped("restart", nil)
	s.respond(req, true, nil, "")
}

type gotoArguments struct {
	TargetID uint64 `json:"targetId"`
}

func (s *Session) gotoRequest(req Request) {
	var args gotoArguments
	if err := json.Unmarshal(req.Arguments, &args); err != nil {
		s.respond(req, false, nil, err.Error())
		return
	}
	if _, err := s.dbg.Goto(args.TargetID); err != nil {
		s.outputError(err)
		return
	}
	s.emitStopped("goto", nil)
	s.respond(req, true, nil, "")
}

// transition runs a debugger navigation call and turns its Transition
// into a Stopped event, then a bare success response.
func (s *Session) transition(req Request, fn func() (debugger.Transition, error), command string, body interface{}) {
	tr, err := fn()
	if err != nil {
		s.outputError(err)
		return
	}
	s.emitTransition(tr)
	s.respond(req, true, body, "")
}

func (s *Session) emitTransition(tr debugger.Transition) {
	reason, ids := stoppedReason(tr)
	s.emitStopped(reason, ids)
}

func stoppedReason(tr debugger.Transition) (string, []int) {
	switch tr.Kind {
	case debugger.Beginning:
		return "bof", nil
	case debugger.End:
		return "eof", nil
	case debugger.Constraint, debugger.InvalidConstraint:
		return "exception", nil
	case debugger.BreakpointHit:
		return "breakpoint", []int{tr.BreakpointID}
	default:
		return "unknown", nil
	}
}

func (s *Session) emitStopped(reason string, hitBreakpointIDs []int) {
	c, err := s.dbg.FetchCurrentConstraint()
	var description interface{}
	if err == nil {
		description = fmt.Sprintf("%s:%d", c.Source.Name, c.Source.Line)
	}

	s.event("stopped", map[string]interface{}{
		"reason":            reason,
		"description":       description,
		"allThreadsStopped": true,
		"hitBreakpointIds":  hitBreakpointIDs,
	})
}

type evaluateArguments struct {
	Expression string `json:"expression"`
}

func (s *Session) evaluate(req Request) {
	var args evaluateArguments
	if err := json.Unmarshal(req.Arguments, &args); err != nil {
		s.respond(req, false, nil, err.Error())
		return
	}

	expr, err := ParseEvaluate(args.Expression)
	if err != nil {
		s.respond(req, false, nil, err.Error())
		return
	}

	var record interface{}
	switch expr.Kind {
	case EvaluateConstraint:
		record, err = s.dbg.FetchConstraint(expr.ID)
	case EvaluateWitness:
		record, err = s.dbg.FetchWitness(expr.ID)
	default:
		record, err = s.dbg.FetchCurrentConstraint()
	}
	if err != nil {
		s.outputError(err)
		s.respond(req, false, nil, err.Error())
		return
	}

	raw, err := json.Marshal(record)
	if err != nil {
		s.respond(req, false, nil, err.Error())
		return
	}

	s.respond(req, true, map[string]interface{}{
		"result":              string(raw),
		"variablesReference": 0,
	}, "")
}

func (s *Session) loadedSources(req Request) {
	names, contents := s.dbg.Decoder().SourceCache()
	sources := make([]map[string]interface{}, len(names))
	for i := range names {
		sources[i] = map[string]interface{}{
			"name":   names[i],
			"origin": contents[i],
		}
	}
	s.respond(req, true, map[string]interface{}{"sources": sources}, "")
}

type sourceRefArguments struct {
	Name string `json:"name"`
}

type breakpointLocationsArguments struct {
	Source sourceRefArguments `json:"source"`
	Line   uint64             `json:"line"`
}

func (s *Session) breakpointLocations(req Request) {
	var args breakpointLocationsArguments
	if err := json.Unmarshal(req.Arguments, &args); err != nil {
		s.respond(req, false, nil, err.Error())
		return
	}

	var locations []map[string]interface{}
	for _, id := range s.dbg.Breakpoints().List() {
		bp, ok := s.dbg.Breakpoints().Get(id)
		if !ok {
			continue
		}
		if !bp.Matches(args.Source.Name, args.Line) {
			continue
		}
		locations = append(locations, map[string]interface{}{"line": args.Line})
	}

	s.respond(req, true, map[string]interface{}{"breakpoints": locations}, "")
}

type setBreakpointsArguments struct {
	Source struct {
		Path string `json:"path"`
	} `json:"source"`
	Breakpoints []struct {
		Line uint64 `json:"line"`
	} `json:"breakpoints"`
	Lines []uint64 `json:"lines"`
}

func (s *Session) setBreakpoints(req Request) {
	var args setBreakpointsArguments
	if err := json.Unmarshal(req.Arguments, &args); err != nil {
		s.respond(req, false, nil, err.Error())
		return
	}
	if args.Source.Path == "" {
		s.respond(req, false, nil, "the source path is mandatory to set a breakpoint")
		return
	}

	reg := s.dbg.Breakpoints()
	reg.ClearMatching(args.Source.Path)

	lines := make([]uint64, 0, len(args.Breakpoints)+len(args.Lines))
	for _, b := range args.Breakpoints {
		lines = append(lines, b.Line)
	}
	lines = append(lines, args.Lines...)

	result := make([]map[string]interface{}, len(lines))
	for i, line := range lines {
		line := line
		id := reg.Add(args.Source.Path, &line)
		result[i] = map[string]interface{}{
			"id":       id,
			"verified": true,
			"line":     line,
		}
	}

	s.respond(req, true, map[string]interface{}{"breakpoints": result}, "")
}

type customAddBreakpointArguments struct {
	Breakpoint struct {
		Source sourceRefArguments `json:"source"`
		Line   *uint64            `json:"line"`
	} `json:"breakpoint"`
}

func (s *Session) addBreakpoint(req Request) {
	var args customAddBreakpointArguments
	if err := json.Unmarshal(req.Arguments, &args); err != nil {
		s.respond(req, false, nil, err.Error())
		return
	}
	if args.Breakpoint.Source.Name == "" {
		s.respond(req, false, nil, "the breakpoint name wasn't provided")
		return
	}

	id := s.dbg.Breakpoints().Add(args.Breakpoint.Source.Name, args.Breakpoint.Line)
	s.respond(req, true, map[string]interface{}{"id": id}, "")
}

type customRemoveBreakpointArguments struct {
	ID int `json:"id"`
}

func (s *Session) removeBreakpoint(req Request) {
	var args customRemoveBreakpointArguments
	if err := json.Unmarshal(req.Arguments, &args); err != nil {
		s.respond(req, false, nil, err.Error())
		return
	}

	_, removed := s.dbg.Breakpoints().Remove(args.ID)
	s.respond(req, true, map[string]interface{}{"id": args.ID, "removed": removed}, "")
}
