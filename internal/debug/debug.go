// Package debug decides when the run loop pauses: on address breakpoints and
// when a Lua step hook asks for it.
package debug

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/kapitanov/chip8/internal/vm"
	lua "github.com/yuin/gopher-lua"
)

const stepHook = "on_step"

var ErrInvalidAddress = errors.New("invalid address")

type Debugger struct {
	breakpoints map[uint16]struct{}

	lua     *lua.LState
	machine *vm.Machine
	hook    lua.LValue
}

func New() *Debugger {
	return &Debugger{
		breakpoints: make(map[uint16]struct{}),
	}
}

// ParseBreakpoint parses an address written as $hex, 0xhex or bare hex.
func ParseBreakpoint(s string) (uint16, error) {
	s = strings.TrimSpace(s)

	digits := s
	switch {
	case strings.HasPrefix(s, "$"):
		digits = s[1:]
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		digits = s[2:]
	}

	v, err := strconv.ParseUint(digits, 16, 16)
	if err != nil || digits == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	if v >= vm.MemorySize {
		return 0, fmt.Errorf("%w: %q is outside memory", ErrInvalidAddress, s)
	}

	return uint16(v), nil
}

func (d *Debugger) AddBreakpoint(addr uint16) {
	slog.Debug("debug: add breakpoint", "pc", fmt.Sprintf("0x%04x", addr))
	d.breakpoints[addr] = struct{}{}
}

func (d *Debugger) RemoveBreakpoint(addr uint16) {
	delete(d.breakpoints, addr)
}

// Breakpoints returns the breakpoint addresses in ascending order.
func (d *Debugger) Breakpoints() []uint16 {
	addrs := make([]uint16, 0, len(d.breakpoints))
	for addr := range d.breakpoints {
		addrs = append(addrs, addr)
	}
	slices.Sort(addrs)
	return addrs
}

// ShouldBreak is consulted before the instruction at m.PC executes.
func (d *Debugger) ShouldBreak(m *vm.Machine) (bool, string) {
	if _, ok := d.breakpoints[m.PC]; ok {
		return true, "breakpoint"
	}

	if d.hook == nil {
		return false, ""
	}

	hit, err := d.callHook(m)
	if err != nil {
		slog.Error("debug: step hook failed", "err", err)
		return true, "script error"
	}
	if hit {
		return true, "script"
	}

	return false, ""
}

// LoadScript runs src and installs its global on_step(pc, opcode) function
// as the step hook. Scripts read the machine through reg, mem, index, pc and
// timers.
func (d *Debugger) LoadScript(src string) error {
	d.Close()

	L := lua.NewState()
	d.registerFuncs(L)

	if err := L.DoString(src); err != nil {
		L.Close()
		return fmt.Errorf("loading script: %w", err)
	}

	hook := L.GetGlobal(stepHook)
	if hook.Type() != lua.LTFunction {
		L.Close()
		return fmt.Errorf("loading script: global %s is not a function", stepHook)
	}

	d.lua = L
	d.hook = hook
	return nil
}

func (d *Debugger) Close() {
	if d.lua != nil {
		d.lua.Close()
	}
	d.lua = nil
	d.hook = nil
	d.machine = nil
}

func (d *Debugger) callHook(m *vm.Machine) (bool, error) {
	var opcode uint16
	if int(m.PC)+1 < vm.MemorySize {
		opcode = uint16(m.Memory[m.PC])<<8 | uint16(m.Memory[m.PC+1])
	}

	d.machine = m
	err := d.lua.CallByParam(lua.P{
		Fn:      d.hook,
		NRet:    1,
		Protect: true,
	}, lua.LNumber(m.PC), lua.LNumber(opcode))
	if err != nil {
		return false, err
	}

	ret := d.lua.Get(-1)
	d.lua.Pop(1)
	return lua.LVAsBool(ret), nil
}

// state returns the machine being stepped. Outside of the step hook there is
// none and the calling script fails.
func (d *Debugger) state(L *lua.LState) *vm.Machine {
	if d.machine == nil {
		L.RaiseError("machine state is only available inside %s", stepHook)
	}
	return d.machine
}

func (d *Debugger) registerFuncs(L *lua.LState) {
	funcs := map[string]lua.LGFunction{
		"reg": func(L *lua.LState) int {
			m := d.state(L)
			i := L.CheckInt(1)
			if i < 0 || i >= vm.RegisterCount {
				L.ArgError(1, "register index out of range")
				return 0
			}
			L.Push(lua.LNumber(m.V[i]))
			return 1
		},
		"mem": func(L *lua.LState) int {
			m := d.state(L)
			addr := L.CheckInt(1)
			if addr < 0 || addr >= vm.MemorySize {
				L.ArgError(1, "address out of range")
				return 0
			}
			L.Push(lua.LNumber(m.Memory[addr]))
			return 1
		},
		"index": func(L *lua.LState) int {
			L.Push(lua.LNumber(d.state(L).I))
			return 1
		},
		"pc": func(L *lua.LState) int {
			L.Push(lua.LNumber(d.state(L).PC))
			return 1
		},
		"timers": func(L *lua.LState) int {
			m := d.state(L)
			L.Push(lua.LNumber(m.Delay))
			L.Push(lua.LNumber(m.Sound))
			return 2
		},
	}

	for name, fn := range funcs {
		L.SetGlobal(name, L.NewFunction(fn))
	}
}
