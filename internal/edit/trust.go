package edit

import (
	"strconv"

	"github.com/seahorsehq/seahorse/pkg/key"
)

type trustData struct {
	trust key.OwnerTrust
}

const (
	trustCommand State = Custom + iota
	trustValue
	trustConfirm
)

var trustWorkflow = &Workflow[trustData]{
	Name: "trust",
	Rules: []Rule[trustData]{
		{From: Start, Status: GetLine, Prompt: Prompt, To: trustCommand},
		{From: trustCommand, Status: GetLine, Prompt: "edit_ownertrust.value", To: trustValue},
		{From: trustValue, Status: GetLine, Prompt: Prompt, To: Quit},
		{From: trustValue, Status: GetBool, Prompt: "edit_ownertrust.set_ultimate.okay", To: trustConfirm},
		{From: trustConfirm, Status: GetLine, Prompt: Prompt, To: Quit},
	},
	Replies: map[State]Reply[trustData]{
		trustCommand: Line[trustData]("trust"),
		trustValue:   func(d *trustData) (string, bool) { return strconv.Itoa(int(d.trust)), true },
		trustConfirm: Line[trustData](Yes),
	},
}

func Trust(trust key.OwnerTrust) Automaton {
	return NewMachine(trustWorkflow, &trustData{trust: trust})
}

type disableData struct {
	command string
}

const disableCommand State = Custom

var disableWorkflow = &Workflow[disableData]{
	Name: "disable",
	Rules: []Rule[disableData]{
		{From: Start, Status: GetLine, Prompt: Prompt, To: disableCommand},
		{From: disableCommand, Status: GetLine, Prompt: Prompt, To: Quit},
	},
	Replies: map[State]Reply[disableData]{
		disableCommand: func(d *disableData) (string, bool) { return d.command, true },
	},
}

// Disable disables the key, or enables it again when disabled is false.
func Disable(disabled bool) Automaton {
	command := "enable"
	if disabled {
		command = "disable"
	}
	return NewMachine(disableWorkflow, &disableData{command: command})
}

type passwdData struct{}

const (
	passwdCommand State = Custom + iota
	passwdPassphrase
)

var passwdWorkflow = &Workflow[passwdData]{
	Name: "passwd",
	Rules: []Rule[passwdData]{
		{From: Start, Status: GetLine, Prompt: Prompt, To: passwdCommand},
		{From: passwdCommand, Status: NeedPassphraseSym, To: passwdPassphrase},
		// back at the main prompt without a passphrase request
		{From: passwdCommand, Status: GetLine, Prompt: Prompt, To: Error, Err: ErrCancelled},
		{From: passwdPassphrase, Status: GetLine, Prompt: Prompt, To: Quit},
	},
	Replies: map[State]Reply[passwdData]{
		passwdCommand:    Line[passwdData]("passwd"),
		passwdPassphrase: Silent[passwdData],
	},
}

// Passwd changes the passphrase, the agent collects the passphrases.
func Passwd() Automaton {
	return NewMachine(passwdWorkflow, &passwdData{})
}
