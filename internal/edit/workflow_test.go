package edit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/seahorsehq/seahorse/pkg/key"
	"github.com/seahorsehq/seahorse/pkg/operation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// step is one status line and the reply expected for it, "-" when no
// reply is expected.
type step struct {
	status string
	reply  string
}

func p(reply string) step {
	return step{status: "GET_LINE " + Prompt, reply: reply}
}

func line(prompt string, reply string) step {
	return step{status: "GET_LINE " + prompt, reply: reply}
}

func boolean(prompt string, reply string) step {
	return step{status: "GET_BOOL " + prompt, reply: reply}
}

func save() step {
	return boolean(SaveOK, Yes)
}

func drive(t *testing.T, a Automaton, steps []step) {
	t.Helper()

	for i, s := range steps {
		ev, ok := ParseEvent(statusPrefix + s.status)
		require.True(t, ok)

		if ev.Status == Ignored || ev.Status == Unknown {
			continue
		}

		reply, send, err := a.Step(ev)
		if err != nil {
			reply, send = a.Recover(ev)
		}

		if s.reply == "-" {
			assert.False(t, send && ev.Demanding(), "step %d (%s) replied %q", i, s.status, reply)
			continue
		}
		require.True(t, send, "step %d (%s) sent nothing", i, s.status)
		assert.Equal(t, s.reply, reply, "step %d (%s)", i, s.status)
	}
}

func TestWorkflows(t *testing.T) {
	expires := time.Date(2030, 1, 2, 12, 0, 0, 0, time.UTC)

	for _, tc := range []struct {
		name      string
		automaton Automaton
		steps     []step
		code      operation.Code
	}{
		{
			name:      "SignAlreadySigned",
			automaton: Sign(1, CheckNoAnswer, 0),
			steps:     []step{p("uid 1"), p("sign"), p(QuitCmd)},
		},
		{
			name:      "Sign",
			automaton: Sign(2, CheckCasual, SignLocal|SignExpires),
			steps: []step{
				{status: "KEY_CONSIDERED AAAABBBB 0", reply: "-"},
				p("uid 2"),
				p("lsign"),
				line("sign_uid.expire", Yes),
				line("sign_uid.class", "2"),
				{status: "GOT_IT", reply: "-"},
				boolean("sign_uid.okay", Yes),
				p(QuitCmd),
				save(),
			},
		},
		{
			name:      "SignAll",
			automaton: Sign(0, CheckCareful, SignNoRevoke),
			steps: []step{
				p("uid 0"),
				p("nrsign"),
				boolean("keyedit.sign_all.okay", Yes),
				line("sign_uid.class", "3"),
				boolean("sign_uid.okay", Yes),
				p(QuitCmd),
				save(),
			},
		},
		{
			name:      "Trust",
			automaton: Trust(key.TrustUltimate),
			steps: []step{
				p("trust"),
				line("edit_ownertrust.value", "5"),
				boolean("edit_ownertrust.set_ultimate.okay", Yes),
				p(QuitCmd),
				save(),
			},
		},
		{
			name:      "TrustUnexpected",
			automaton: Trust(key.TrustFull),
			steps: []step{
				p("trust"),
				boolean("something.else", ""),
				boolean("something.more", ""),
				p(QuitCmd),
				save(),
			},
			code: operation.Protocol,
		},
		{
			name:      "Disable",
			automaton: Disable(true),
			steps:     []step{p("disable"), p(QuitCmd), save()},
		},
		{
			name:      "Enable",
			automaton: Disable(false),
			steps:     []step{p("enable"), p(QuitCmd), save()},
		},
		{
			name:      "Passwd",
			automaton: Passwd(),
			steps: []step{
				p("passwd"),
				{status: "NEED_PASSPHRASE_SYM 3 3 2", reply: "-"},
				p(QuitCmd),
				save(),
			},
		},
		{
			name:      "Expire",
			automaton: Expire(1, expires),
			steps: []step{
				p("key 1"),
				p("expire"),
				line("keygen.valid", "2030-01-02"),
				p(QuitCmd),
				save(),
			},
		},
		{
			name:      "ExpireNever",
			automaton: Expire(0, time.Time{}),
			steps: []step{
				p("key 0"),
				p("expire"),
				line("keygen.valid", "0"),
				p(QuitCmd),
				save(),
			},
		},
		{
			name:      "AddRevoker",
			automaton: AddRevoker("CCCCDDDD"),
			steps: []step{
				p("addrevoker"),
				line("keyedit.add_revoker", "CCCCDDDD"),
				boolean("keyedit.add_revoker.okay", Yes),
				p(QuitCmd),
				save(),
			},
		},
		{
			name:      "AddUID",
			automaton: AddUID("Alice Example", "alice@example.com", ""),
			steps: []step{
				p("adduid"),
				line("keygen.name", "Alice Example"),
				line("keygen.email", "alice@example.com"),
				line("keygen.comment", ""),
				p(QuitCmd),
				save(),
			},
		},
		{
			name:      "Primary",
			automaton: Primary(2),
			steps:     []step{p("uid 2"), p("primary"), p(QuitCmd), save()},
		},
		{
			name:      "DeleteUID",
			automaton: DeleteUID(3),
			steps: []step{
				p("uid 3"),
				p("deluid"),
				boolean("keyedit.remove.uid.okay", Yes),
				p(QuitCmd),
				save(),
			},
		},
		{
			name:      "AddSubkeyAnyOrder",
			automaton: AddSubkey(&ModernKeyTypes, SubkeyRSAEncrypt, 2048, expires),
			steps: []step{
				p("addkey"),
				line("keygen.size", "2048"),
				line("keygen.algo", "6"),
				line("keygen.valid", "2030-01-02"),
				p(QuitCmd),
				save(),
			},
		},
		{
			name:      "AddSubkeyElgamalModern",
			automaton: AddSubkey(&ModernKeyTypes, SubkeyElgamal, 2048, time.Time{}),
			steps: []step{
				p("addkey"),
				line("keygen.algo", "5"),
				line("keygen.size", "2048"),
				line("keygen.valid", "0"),
				p(QuitCmd),
				save(),
			},
		},
		{
			name:      "AddSubkeyElgamalLegacy",
			automaton: AddSubkey(&LegacyKeyTypes, SubkeyElgamal, 2048, time.Time{}),
			steps: []step{
				p("addkey"),
				line("keygen.algo", "4"),
				line("keygen.size", "2048"),
				line("keygen.valid", "0"),
				p(QuitCmd),
				save(),
			},
		},
		{
			name:      "AddSubkeyUnexpected",
			automaton: AddSubkey(&LegacyKeyTypes, SubkeyDSA, 1024, time.Time{}),
			steps: []step{
				p("addkey"),
				line("keygen.algo", "2"),
				boolean("keygen.size.huge.okay", ""),
				p(QuitCmd),
				save(),
			},
			code: operation.Protocol,
		},
		{
			name:      "AddSubkeyAlgoRejected",
			automaton: AddSubkey(&ModernKeyTypes, SubkeyDSA, 1024, time.Time{}),
			steps: []step{
				p("addkey"),
				line("keygen.algo", "3"),
				line("keygen.algo", "-"),
				line("keygen.algo", "-"),
			},
			code: operation.Protocol,
		},
		{
			name:      "DeleteSubkey",
			automaton: DeleteSubkey(1),
			steps: []step{
				p("key 1"),
				p("delkey"),
				boolean("keyedit.remove.subkey.okay", Yes),
				p(QuitCmd),
				save(),
			},
		},
		{
			name:      "RevokeSubkey",
			automaton: RevokeSubkey(2, ReasonCompromised, "lost laptop"),
			steps: []step{
				p("key 2"),
				p("revkey"),
				boolean("keyedit.revoke.subkey.okay", Yes),
				line("ask_revocation_reason.code", "1"),
				line("ask_revocation_reason.text", "lost laptop"),
				line("ask_revocation_reason.text", ""),
				boolean("ask_revocation_reason.okay", Yes),
				p(QuitCmd),
				save(),
			},
		},
		{
			name:      "AddPhoto",
			automaton: AddPhoto("/tmp/alice.jpg"),
			steps: []step{
				p("addphoto"),
				line("photoid.jpeg.add", "/tmp/alice.jpg"),
				boolean("photoid.jpeg.size", Yes),
				p(QuitCmd),
				save(),
			},
		},
		{
			name:      "AddPhotoInvalid",
			automaton: AddPhoto("/tmp/alice.txt"),
			steps: []step{
				p("addphoto"),
				line("photoid.jpeg.add", "/tmp/alice.txt"),
				line("photoid.jpeg.add", ""),
				p(QuitCmd),
			},
			code: operation.InvalidArgument,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			drive(t, tc.automaton, tc.steps)

			err := tc.automaton.Err()
			if tc.code == 0 {
				assert.NoError(t, err)
				return
			}

			code, ok := operation.CodeOf(err)
			require.True(t, ok, "expected *operation.Error, got %v", err)
			assert.Equal(t, tc.code, code)
		})
	}
}

func TestPasswdCancelled(t *testing.T) {
	a := Passwd()
	drive(t, a, []step{p("passwd"), p(QuitCmd)})
	assert.ErrorIs(t, a.Err(), ErrCancelled)
}

func TestUnexpectedStart(t *testing.T) {
	a := Sign(1, CheckNone, 0)

	ev, _ := ParseEvent("[GNUPG:] GET_BOOL sign_uid.okay")
	_, _, err := a.Step(ev)
	assert.ErrorIs(t, err, ErrProtocol)
	assert.Equal(t, Error, a.State())

	// the first error sticks
	ev, _ = ParseEvent("[GNUPG:] GET_LINE keyedit.prompt")
	reply, ok, err := a.Step(ev)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, QuitCmd, reply)
	assert.ErrorIs(t, a.Err(), ErrProtocol)
}

func TestLoadPhotos(t *testing.T) {
	output := filepath.Join(t.TempDir(), "photo.jpg")
	a, data := LoadPhotos(2, output)

	drive(t, a, []step{p("uid 1"), p("showphoto")})

	// the photo viewer copies the image while gpg shows it
	require.NoError(t, os.WriteFile(output, []byte("jpeg"), 0o600))

	drive(t, a, []step{p("uid 1"), p("uid 2"), p("showphoto"), p("uid 2"), p(QuitCmd)})

	assert.NoError(t, a.Err())
	assert.Equal(t, []Photo{{UID: 1, Data: []byte("jpeg")}}, data.Photos())
	assert.NoFileExists(t, output)
}

func TestParseEvent(t *testing.T) {
	for _, tc := range []struct {
		line   string
		ok     bool
		status Status
		args   string
	}{
		{line: "[GNUPG:] GET_LINE keyedit.prompt", ok: true, status: GetLine, args: "keyedit.prompt"},
		{line: "[GNUPG:] GET_BOOL keyedit.save.okay", ok: true, status: GetBool, args: "keyedit.save.okay"},
		{line: "[GNUPG:] GET_HIDDEN passphrase.enter", ok: true, status: GetHidden, args: "passphrase.enter"},
		{line: "[GNUPG:] NEED_PASSPHRASE_SYM 3 3 2", ok: true, status: NeedPassphraseSym, args: "3 3 2"},
		{line: "[GNUPG:] GOT_IT", ok: true, status: Ignored},
		{line: "[GNUPG:] SOMETHING_NEW x", ok: true, status: Unknown, args: "x"},
		{line: "pub:u:4096:1:AAAABBBBCCCCDDDD:1600000000:::u:::scESC:", ok: false},
	} {
		t.Run(strings.Fields(tc.line)[0], func(t *testing.T) {
			ev, ok := ParseEvent(tc.line)
			assert.Equal(t, tc.ok, ok)
			if ok {
				assert.Equal(t, tc.status, ev.Status)
				assert.Equal(t, tc.args, ev.Args)
			}
		})
	}
}

func TestParseNames(t *testing.T) {
	check, err := ParseCheck("Careful")
	require.NoError(t, err)
	assert.Equal(t, CheckCareful, check)

	check, err = ParseCheck("")
	require.NoError(t, err)
	assert.Equal(t, CheckNoAnswer, check)

	typ, err := ParseSubkeyType("rsa-encrypt")
	require.NoError(t, err)
	assert.Equal(t, SubkeyRSAEncrypt, typ)
	assert.Equal(t, "rsa-encrypt", typ.String())

	reason, err := ParseRevokeReason("superseded")
	require.NoError(t, err)
	assert.Equal(t, ReasonSuperseded, reason)

	for _, f := range []func() error{
		func() error { _, err := ParseCheck("thorough"); return err },
		func() error { _, err := ParseSubkeyType("ed25519"); return err },
		func() error { _, err := ParseRevokeReason("bored"); return err },
	} {
		assert.Error(t, f())
	}
}

func TestKeyTypes(t *testing.T) {
	for _, tc := range []struct {
		version string
		table   *KeyTypeTable
	}{
		{version: "1.4.9", table: &LegacyKeyTypes},
		{version: "1.4.10", table: &ModernKeyTypes},
		{version: "1.2.6", table: &LegacyKeyTypes},
		{version: "2.0.11", table: &LegacyKeyTypes},
		{version: "2.0.12", table: &ModernKeyTypes},
		{version: "2.2.27", table: &ModernKeyTypes},
		{version: "2.5.0-beta1", table: &ModernKeyTypes},
	} {
		t.Run(tc.version, func(t *testing.T) {
			table, err := KeyTypes(tc.version)
			require.NoError(t, err)
			assert.Equal(t, tc.table, table)
		})
	}

	_, err := KeyTypes("unknown")
	assert.Error(t, err)

	assert.Equal(t, []int{2, 4, 5, 6}, []int{
		LegacyKeyTypes.Choice(SubkeyDSA),
		LegacyKeyTypes.Choice(SubkeyElgamal),
		LegacyKeyTypes.Choice(SubkeyRSASign),
		LegacyKeyTypes.Choice(SubkeyRSAEncrypt),
	})
	assert.Equal(t, []int{3, 5, 4, 6}, []int{
		ModernKeyTypes.Choice(SubkeyDSA),
		ModernKeyTypes.Choice(SubkeyElgamal),
		ModernKeyTypes.Choice(SubkeyRSASign),
		ModernKeyTypes.Choice(SubkeyRSAEncrypt),
	})
}
