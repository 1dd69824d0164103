package edit

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// date formats an expiry the way keygen.valid accepts it, zero never
// expires.
func date(t time.Time) string {
	if t.IsZero() {
		return "0"
	}
	return t.UTC().Format("2006-01-02")
}

type expireData struct {
	subkey  int
	expires time.Time
}

const (
	expireSelect State = Custom + iota
	expireCommand
	expireDate
)

var expireWorkflow = &Workflow[expireData]{
	Name: "expire",
	Rules: []Rule[expireData]{
		{From: Start, Status: GetLine, Prompt: Prompt, To: expireSelect},
		{From: expireSelect, Status: GetLine, Prompt: Prompt, To: expireCommand},
		{From: expireCommand, Status: GetLine, Prompt: "keygen.valid", To: expireDate},
		{From: expireDate, Status: GetLine, Prompt: Prompt, To: Quit},
	},
	Replies: map[State]Reply[expireData]{
		expireSelect:  func(d *expireData) (string, bool) { return fmt.Sprintf("key %d", d.subkey), true },
		expireCommand: Line[expireData]("expire"),
		expireDate:    func(d *expireData) (string, bool) { return date(d.expires), true },
	},
}

// Expire changes the expiry of subkey, 0 is the primary key. A zero
// time never expires.
func Expire(subkey int, expires time.Time) Automaton {
	return NewMachine(expireWorkflow, &expireData{subkey: subkey, expires: expires})
}

type revokerData struct {
	keyid string
}

const (
	revokerCommand State = Custom + iota
	revokerSelect
	revokerConfirm
)

var revokerWorkflow = &Workflow[revokerData]{
	Name: "addrevoker",
	Rules: []Rule[revokerData]{
		{From: Start, Status: GetLine, Prompt: Prompt, To: revokerCommand},
		{From: revokerCommand, Status: GetLine, Prompt: "keyedit.add_revoker", To: revokerSelect},
		{From: revokerSelect, Status: GetBool, Prompt: "keyedit.add_revoker.okay", To: revokerConfirm},
		{From: revokerConfirm, Status: GetLine, Prompt: Prompt, To: Quit},
	},
	Replies: map[State]Reply[revokerData]{
		revokerCommand: Line[revokerData]("addrevoker"),
		revokerSelect:  func(d *revokerData) (string, bool) { return d.keyid, true },
		revokerConfirm: Line[revokerData](Yes),
	},
}

// AddRevoker designates the key identified by keyid as a revoker.
func AddRevoker(keyid string) Automaton {
	return NewMachine(revokerWorkflow, &revokerData{keyid: keyid})
}

type addUIDData struct {
	name    string
	email   string
	comment string
}

const (
	addUIDCommand State = Custom + iota
	addUIDName
	addUIDEmail
	addUIDComment
)

var addUIDWorkflow = &Workflow[addUIDData]{
	Name: "adduid",
	Rules: []Rule[addUIDData]{
		{From: Start, Status: GetLine, Prompt: Prompt, To: addUIDCommand},
		{From: addUIDCommand, Status: GetLine, Prompt: "keygen.name", To: addUIDName},
		{From: addUIDName, Status: GetLine, Prompt: "keygen.email", To: addUIDEmail},
		{From: addUIDEmail, Status: GetLine, Prompt: "keygen.comment", To: addUIDComment},
		{From: addUIDComment, Status: Any, To: Quit},
	},
	Replies: map[State]Reply[addUIDData]{
		addUIDCommand: Line[addUIDData]("adduid"),
		addUIDName:    func(d *addUIDData) (string, bool) { return d.name, true },
		addUIDEmail:   func(d *addUIDData) (string, bool) { return d.email, true },
		addUIDComment: func(d *addUIDData) (string, bool) { return d.comment, true },
	},
}

func AddUID(name string, email string, comment string) Automaton {
	return NewMachine(addUIDWorkflow, &addUIDData{name: name, email: email, comment: comment})
}

type uidData struct {
	uid int
}

const (
	uidSelect State = Custom + iota
	uidCommand
	uidConfirm
)

var primaryWorkflow = &Workflow[uidData]{
	Name: "primary",
	Rules: []Rule[uidData]{
		{From: Start, Status: GetLine, Prompt: Prompt, To: uidSelect},
		{From: uidSelect, Status: GetLine, Prompt: Prompt, To: uidCommand},
		{From: uidCommand, Status: GetLine, Prompt: Prompt, To: Quit},
	},
	Replies: map[State]Reply[uidData]{
		uidSelect:  func(d *uidData) (string, bool) { return fmt.Sprintf("uid %d", d.uid), true },
		uidCommand: Line[uidData]("primary"),
	},
}

// Primary makes user id uid the primary one. Photo ids use the same
// conversation.
func Primary(uid int) Automaton {
	return NewMachine(primaryWorkflow, &uidData{uid: uid})
}

var delUIDWorkflow = &Workflow[uidData]{
	Name: "deluid",
	Rules: []Rule[uidData]{
		{From: Start, Status: GetLine, Prompt: Prompt, To: uidSelect},
		{From: uidSelect, Status: GetLine, Prompt: Prompt, To: uidCommand},
		{From: uidCommand, Status: GetBool, Prompt: "keyedit.remove.uid.okay", To: uidConfirm},
		{From: uidCommand, Status: GetLine, Prompt: Prompt, To: Quit},
		{From: uidConfirm, Status: GetLine, Prompt: Prompt, To: Quit},
	},
	Replies: map[State]Reply[uidData]{
		uidSelect:  func(d *uidData) (string, bool) { return fmt.Sprintf("uid %d", d.uid), true },
		uidCommand: Line[uidData]("deluid"),
		uidConfirm: Line[uidData](Yes),
	},
}

// DeleteUID removes user id uid. Photo ids use the same conversation.
func DeleteUID(uid int) Automaton {
	return NewMachine(delUIDWorkflow, &uidData{uid: uid})
}

// SubkeyType is the kind of subkey added by addkey. The number gpg
// expects for it depends on the gpg version, see KeyTypes.
type SubkeyType int

const (
	SubkeyDSA SubkeyType = iota + 1
	SubkeyElgamal
	SubkeyRSASign
	SubkeyRSAEncrypt
)

func (t SubkeyType) String() string {
	switch t {
	case SubkeyDSA:
		return "dsa"
	case SubkeyElgamal:
		return "elgamal"
	case SubkeyRSASign:
		return "rsa-sign"
	case SubkeyRSAEncrypt:
		return "rsa-encrypt"
	default:
		panic(fmt.Sprintf("invalid subkey type: %d", int(t)))
	}
}

func ParseSubkeyType(s string) (SubkeyType, error) {
	switch s {
	case "dsa":
		return SubkeyDSA, nil
	case "elgamal":
		return SubkeyElgamal, nil
	case "rsa-sign":
		return SubkeyRSASign, nil
	case "rsa-encrypt":
		return SubkeyRSAEncrypt, nil
	default:
		return 0, fmt.Errorf("unrecognized subkey type: %s", s)
	}
}

// Lengths returns the key sizes gpg accepts for the type.
func (t SubkeyType) Lengths() (int, int) {
	switch t {
	case SubkeyDSA:
		return 768, 1024
	case SubkeyElgamal:
		return 768, 4096
	default:
		return 1024, 4096
	}
}

// KeyTypeTable maps subkey types to entries of gpg's addkey algorithm
// menu.
type KeyTypeTable struct {
	DSASign    int
	ElgamalEnc int
	RSASign    int
	RSAEnc     int
}

var (
	// menu of gpg before 1.4.10 and 2.0.12
	LegacyKeyTypes = KeyTypeTable{DSASign: 2, ElgamalEnc: 4, RSASign: 5, RSAEnc: 6}
	ModernKeyTypes = KeyTypeTable{DSASign: 3, ElgamalEnc: 5, RSASign: 4, RSAEnc: 6}
)

// Choice returns the menu entry for typ.
func (t *KeyTypeTable) Choice(typ SubkeyType) int {
	switch typ {
	case SubkeyDSA:
		return t.DSASign
	case SubkeyElgamal:
		return t.ElgamalEnc
	case SubkeyRSASign:
		return t.RSASign
	case SubkeyRSAEncrypt:
		return t.RSAEnc
	default:
		panic(fmt.Sprintf("invalid subkey type: %d", int(typ)))
	}
}

// KeyTypes returns the addkey menu of the gpg with the given version,
// "2.2.27" or "1.4.9".
func KeyTypes(version string) (*KeyTypeTable, error) {
	var parts [3]int
	fields := strings.SplitN(strings.TrimSpace(version), ".", 3)
	if len(fields) < 2 {
		return nil, fmt.Errorf("unrecognized gpg version: %q", version)
	}
	for i, f := range fields {
		// drop suffixes such as -beta
		if j := strings.IndexFunc(f, func(r rune) bool { return r < '0' || r > '9' }); j >= 0 {
			f = f[:j]
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("unrecognized gpg version: %q", version)
		}
		parts[i] = n
	}

	major, minor, micro := parts[0], parts[1], parts[2]
	if major == 2 && minor == 0 && micro < 12 || major == 1 && (minor < 4 || minor == 4 && micro < 10) {
		return &LegacyKeyTypes, nil
	}
	return &ModernKeyTypes, nil
}

type addSubkeyData struct {
	table   *KeyTypeTable
	typ     SubkeyType
	length  int
	expires time.Time

	// gpg asks for the algorithm again when it rejected the answer
	answered bool
}

const (
	addSubkeyCommand State = Custom + iota
	addSubkeyType
	addSubkeyLength
	addSubkeyExpires
	addSubkeyAbort
)

func addSubkeyRules() []Rule[addSubkeyData] {
	var rules []Rule[addSubkeyData]

	// gpg may ask the questions in any order, anything else is an error
	for _, from := range []State{addSubkeyCommand, addSubkeyType, addSubkeyLength, addSubkeyExpires} {
		rules = append(rules,
			Rule[addSubkeyData]{From: from, Status: GetLine, Prompt: "keygen.algo", When: func(d *addSubkeyData) bool { return d.answered }, To: addSubkeyAbort, Err: ErrProtocol},
			Rule[addSubkeyData]{From: from, Status: GetLine, Prompt: "keygen.algo", To: addSubkeyType, Effect: func(d *addSubkeyData) { d.answered = true }},
			Rule[addSubkeyData]{From: from, Status: GetLine, Prompt: "keygen.size", To: addSubkeyLength},
			Rule[addSubkeyData]{From: from, Status: GetLine, Prompt: "keygen.valid", To: addSubkeyExpires},
			Rule[addSubkeyData]{From: from, Status: GetLine, Prompt: Prompt, To: Quit},
		)
	}

	rules = append(rules,
		// a rejected algorithm is asked for again, end the input so gpg
		// gives up instead
		Rule[addSubkeyData]{From: Error, Status: GetLine, Prompt: "keygen.algo", When: func(d *addSubkeyData) bool { return d.answered }, To: addSubkeyAbort},
		Rule[addSubkeyData]{From: addSubkeyAbort, Status: Any, To: addSubkeyAbort},
	)

	return append([]Rule[addSubkeyData]{
		{From: Start, Status: GetLine, Prompt: Prompt, To: addSubkeyCommand},
	}, rules...)
}

var addSubkeyWorkflow = &Workflow[addSubkeyData]{
	Name:  "addkey",
	Rules: addSubkeyRules(),
	Replies: map[State]Reply[addSubkeyData]{
		addSubkeyCommand: Line[addSubkeyData]("addkey"),
		addSubkeyType:    func(d *addSubkeyData) (string, bool) { return strconv.Itoa(d.table.Choice(d.typ)), true },
		addSubkeyLength:  func(d *addSubkeyData) (string, bool) { return strconv.Itoa(d.length), true },
		addSubkeyExpires: func(d *addSubkeyData) (string, bool) { return date(d.expires), true },
		addSubkeyAbort:   Silent[addSubkeyData],
	},
}

// AddSubkey answers the addkey menu from table, see KeyTypes.
func AddSubkey(table *KeyTypeTable, typ SubkeyType, length int, expires time.Time) Automaton {
	return NewMachine(addSubkeyWorkflow, &addSubkeyData{table: table, typ: typ, length: length, expires: expires})
}

type subkeyData struct {
	subkey      int
	reason      RevokeReason
	description string
}

const (
	subkeySelect State = Custom + iota
	subkeyCommand
	subkeyConfirm
	subkeyReason
	subkeyDescription
	subkeyEndDescription
)

var delSubkeyWorkflow = &Workflow[subkeyData]{
	Name: "delkey",
	Rules: []Rule[subkeyData]{
		{From: Start, Status: GetLine, Prompt: Prompt, To: subkeySelect},
		{From: subkeySelect, Status: GetLine, Prompt: Prompt, To: subkeyCommand},
		{From: subkeyCommand, Status: GetBool, Prompt: "keyedit.remove.subkey.okay", To: subkeyConfirm},
		{From: subkeyCommand, Status: GetLine, Prompt: Prompt, To: Quit},
		{From: subkeyConfirm, Status: Any, To: Quit},
	},
	Replies: map[State]Reply[subkeyData]{
		subkeySelect:  func(d *subkeyData) (string, bool) { return fmt.Sprintf("key %d", d.subkey), true },
		subkeyCommand: Line[subkeyData]("delkey"),
		subkeyConfirm: Line[subkeyData](Yes),
	},
}

func DeleteSubkey(subkey int) Automaton {
	return NewMachine(delSubkeyWorkflow, &subkeyData{subkey: subkey})
}

type RevokeReason int

const (
	ReasonNone RevokeReason = iota
	ReasonCompromised
	ReasonSuperseded
	ReasonNotUsed
)

func ParseRevokeReason(s string) (RevokeReason, error) {
	switch s {
	case "", "none":
		return ReasonNone, nil
	case "compromised":
		return ReasonCompromised, nil
	case "superseded":
		return ReasonSuperseded, nil
	case "not-used":
		return ReasonNotUsed, nil
	default:
		return 0, fmt.Errorf("unrecognized revocation reason: %s", s)
	}
}

var revSubkeyWorkflow = &Workflow[subkeyData]{
	Name: "revkey",
	Rules: []Rule[subkeyData]{
		{From: Start, Status: GetLine, Prompt: Prompt, To: subkeySelect},
		{From: subkeySelect, Status: GetLine, Prompt: Prompt, To: subkeyCommand},
		{From: subkeyCommand, Status: GetBool, Prompt: "keyedit.revoke.subkey.okay", To: subkeyConfirm},
		{From: subkeyConfirm, Status: GetLine, Prompt: "ask_revocation_reason.code", To: subkeyReason},
		{From: subkeyConfirm, Status: GetBool, Prompt: "ask_revocation_reason.okay", To: subkeyConfirm},
		{From: subkeyConfirm, Status: GetLine, Prompt: Prompt, To: Quit},
		{From: subkeyReason, Status: GetLine, Prompt: "ask_revocation_reason.text", To: subkeyDescription},
		// a second text prompt asks for more lines, an empty one ends it
		{From: subkeyDescription, Status: GetLine, Prompt: "ask_revocation_reason.text", To: subkeyEndDescription},
		{From: subkeyDescription, Status: GetBool, Prompt: "ask_revocation_reason.okay", To: subkeyConfirm},
		{From: subkeyEndDescription, Status: Any, To: subkeyConfirm},
	},
	Replies: map[State]Reply[subkeyData]{
		subkeySelect:         func(d *subkeyData) (string, bool) { return fmt.Sprintf("key %d", d.subkey), true },
		subkeyCommand:        Line[subkeyData]("revkey"),
		subkeyConfirm:        Line[subkeyData](Yes),
		subkeyReason:         func(d *subkeyData) (string, bool) { return strconv.Itoa(int(d.reason)), true },
		subkeyDescription:    func(d *subkeyData) (string, bool) { return d.description, true },
		subkeyEndDescription: Line[subkeyData](""),
	},
}

func RevokeSubkey(subkey int, reason RevokeReason, description string) Automaton {
	return NewMachine(revSubkeyWorkflow, &subkeyData{subkey: subkey, reason: reason, description: description})
}
