package edit

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Check is how carefully the signer verified the key owner.
type Check int

const (
	CheckNoAnswer Check = iota
	CheckNone
	CheckCasual
	CheckCareful
)

func ParseCheck(s string) (Check, error) {
	switch strings.ToLower(s) {
	case "", "no-answer":
		return CheckNoAnswer, nil
	case "none":
		return CheckNone, nil
	case "casual":
		return CheckCasual, nil
	case "careful":
		return CheckCareful, nil
	default:
		return 0, fmt.Errorf("unrecognized check level: %s", s)
	}
}

type SignOption int

const (
	SignLocal SignOption = 1 << iota
	SignNoRevoke
	SignExpires
)

// Command is the edit command for these options, e.g. nrlsign.
func (o SignOption) Command() string {
	cmd := "sign"
	if o&SignLocal != 0 {
		cmd = "l" + cmd
	}
	if o&SignNoRevoke != 0 {
		cmd = "nr" + cmd
	}
	return cmd
}

type signData struct {
	uid     int
	command string
	expire  bool
	check   Check
}

const (
	signUID State = Custom + iota
	signCommand
	signExpire
	signConfirm
	signCheck
)

var signWorkflow = &Workflow[signData]{
	Name: "sign",
	Rules: []Rule[signData]{
		{From: Start, Status: GetLine, Prompt: Prompt, To: signUID},
		{From: signUID, Status: GetLine, Prompt: Prompt, To: signCommand},

		{From: signCommand, Status: GetBool, Prompt: "keyedit.sign_all.okay", To: signConfirm},
		{From: signCommand, Status: GetBool, Prompt: "sign_uid.okay", To: signConfirm},
		{From: signCommand, Status: GetLine, Prompt: "sign_uid.expire", To: signExpire},
		{From: signCommand, Status: GetLine, Prompt: "sign_uid.class", To: signCheck},
		// the main prompt coming back means there was nothing to sign
		{From: signCommand, Status: GetLine, Prompt: Prompt, To: Error, Err: ErrAlreadySigned},

		{From: signExpire, Status: GetLine, Prompt: "sign_uid.class", To: signCheck},

		{From: signConfirm, Status: GetLine, Prompt: "sign_uid.class", To: signCheck},
		{From: signConfirm, Status: GetBool, Prompt: "sign_uid.okay", To: signConfirm},
		{From: signConfirm, Status: GetLine, Prompt: "sign_uid.expire", To: signExpire},
		{From: signConfirm, Status: GetLine, Prompt: Prompt, To: Quit},

		{From: signCheck, Status: GetBool, Prompt: "sign_uid.okay", To: signConfirm},
	},
	Replies: map[State]Reply[signData]{
		signUID:     func(d *signData) (string, bool) { return fmt.Sprintf("uid %d", d.uid), true },
		signCommand: func(d *signData) (string, bool) { return d.command, true },
		signExpire: func(d *signData) (string, bool) {
			if d.expire {
				return Yes, true
			}
			return No, true
		},
		signConfirm: Line[signData](Yes),
		signCheck:   func(d *signData) (string, bool) { return strconv.Itoa(int(d.check)), true },
	},
	Finish: func(err error) error {
		if errors.Is(err, ErrAlreadySigned) {
			return nil
		}
		return err
	},
}

// Sign signs user id uid, 0 signs every user id.
func Sign(uid int, check Check, options SignOption) Automaton {
	return NewMachine(signWorkflow, &signData{
		uid:     uid,
		command: options.Command(),
		expire:  options&SignExpires != 0,
		check:   check,
	})
}
