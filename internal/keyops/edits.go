package keyops

import (
	"context"
	"os"
	"time"

	"github.com/seahorsehq/seahorse/internal/edit"
	"github.com/seahorsehq/seahorse/pkg/key"
	"github.com/seahorsehq/seahorse/pkg/operation"
)

const minNameLength = 5

func invalid(format string, args ...any) error {
	return operation.Errorf(operation.InvalidArgument, format, args...)
}

// run looks up id, validates and starts the edit. Every edit that
// completes invalidates the cached listings.
func (s *Service) run(ctx context.Context, id string, kind string, validate func(*key.Key) error, build func(*key.Key) edit.Automaton, opts ...edit.Option) operation.Operation {
	k, err := s.Key(ctx, id)
	if err != nil {
		return s.complete("edit."+kind, err)
	}

	if validate != nil {
		if err := validate(k); err != nil {
			return s.complete("edit."+kind, err)
		}
	}

	opts = append(opts, edit.WithCleanup(s.Invalidate))
	return s.editor.Edit(ctx, k.Fingerprint, build(k), opts...)
}

func validUID(k *key.Key, uid int) error {
	if _, ok := k.UID(uid); !ok {
		return invalid("user id %d out of range 1..%d", uid, len(k.UIDs))
	}
	return nil
}

func validSubkey(k *key.Key, subkey int) error {
	if _, ok := k.Subkey(subkey); !ok {
		return invalid("subkey %d out of range 1..%d", subkey, len(k.Subkeys))
	}
	return nil
}

func validExpiry(expires time.Time) error {
	if !expires.IsZero() && !expires.After(time.Now()) {
		return invalid("expiry %s is in the past", expires.Format(time.DateOnly))
	}
	return nil
}

func needSecret(k *key.Key) error {
	if !k.Secret {
		return invalid("no secret key for %s", k.Fingerprint)
	}
	return nil
}

// Sign certifies user id uid of id with signer, or the default key when
// signer is empty. uid 0 signs every user id.
func (s *Service) Sign(ctx context.Context, id string, uid int, check edit.Check, options edit.SignOption, signer string) operation.Operation {
	var opts []edit.Option
	if signer != "" {
		opts = append(opts, edit.WithSigner(signer))
	}

	return s.run(ctx, id, "sign", func(k *key.Key) error {
		if uid == 0 {
			return nil
		}
		return validUID(k, uid)
	}, func(*key.Key) edit.Automaton {
		return edit.Sign(uid, check, options)
	}, opts...)
}

func (s *Service) SetTrust(ctx context.Context, id string, trust key.OwnerTrust) operation.Operation {
	return s.run(ctx, id, "trust", func(k *key.Key) error {
		switch {
		case !trust.Valid():
			return invalid("invalid trust level %d", trust)
		case k.Trust == trust:
			return invalid("trust is already %s", trust)
		case k.Secret && trust == key.TrustUnknown:
			return invalid("a secret key cannot have unknown trust")
		case !k.Secret && trust == key.TrustUltimate:
			return invalid("only secret keys can be trusted ultimately")
		}
		return nil
	}, func(*key.Key) edit.Automaton {
		return edit.Trust(trust)
	})
}

func (s *Service) SetDisabled(ctx context.Context, id string, disabled bool) operation.Operation {
	kind := "enable"
	if disabled {
		kind = "disable"
	}

	return s.run(ctx, id, kind, func(k *key.Key) error {
		if k.Disabled == disabled {
			return invalid("key is already %sd", kind)
		}
		return nil
	}, func(*key.Key) edit.Automaton {
		return edit.Disable(disabled)
	})
}

func (s *Service) ChangePassphrase(ctx context.Context, id string) operation.Operation {
	return s.run(ctx, id, "passwd", needSecret, func(*key.Key) edit.Automaton {
		return edit.Passwd()
	})
}

// SetExpires changes the expiry of subkey, 0 is the primary key. A zero
// time removes the expiry.
func (s *Service) SetExpires(ctx context.Context, id string, subkey int, expires time.Time) operation.Operation {
	return s.run(ctx, id, "expire", func(k *key.Key) error {
		if err := needSecret(k); err != nil {
			return err
		}
		if subkey != 0 {
			if err := validSubkey(k, subkey); err != nil {
				return err
			}
		}
		return validExpiry(expires)
	}, func(*key.Key) edit.Automaton {
		return edit.Expire(subkey, expires)
	})
}

func (s *Service) AddRevoker(ctx context.Context, id string, revoker string) operation.Operation {
	return s.run(ctx, id, "addrevoker", func(k *key.Key) error {
		if err := needSecret(k); err != nil {
			return err
		}
		if revoker == "" || k.Matches(revoker) {
			return invalid("a key cannot be its own revoker")
		}
		if _, err := s.Key(ctx, revoker); err != nil {
			return err
		}
		return nil
	}, func(*key.Key) edit.Automaton {
		return edit.AddRevoker(revoker)
	})
}

func (s *Service) AddUID(ctx context.Context, id string, name string, email string, comment string) operation.Operation {
	return s.run(ctx, id, "adduid", func(k *key.Key) error {
		if err := needSecret(k); err != nil {
			return err
		}
		if len(name) < minNameLength {
			return invalid("name must be at least %d characters", minNameLength)
		}
		return nil
	}, func(*key.Key) edit.Automaton {
		return edit.AddUID(name, email, comment)
	})
}

func (s *Service) PrimaryUID(ctx context.Context, id string, uid int) operation.Operation {
	return s.run(ctx, id, "primary", func(k *key.Key) error {
		if err := needSecret(k); err != nil {
			return err
		}
		return validUID(k, uid)
	}, func(*key.Key) edit.Automaton {
		return edit.Primary(uid)
	})
}

func (s *Service) DeleteUID(ctx context.Context, id string, uid int) operation.Operation {
	return s.run(ctx, id, "deluid", func(k *key.Key) error {
		if err := validUID(k, uid); err != nil {
			return err
		}
		u, _ := k.UID(uid)
		if u.Revoked || u.Invalid {
			return invalid("user id %d is revoked or invalid", uid)
		}
		return nil
	}, func(*key.Key) edit.Automaton {
		return edit.DeleteUID(uid)
	})
}

func (s *Service) AddSubkey(ctx context.Context, id string, typ edit.SubkeyType, length int, expires time.Time) operation.Operation {
	var table *edit.KeyTypeTable

	return s.run(ctx, id, "addkey", func(k *key.Key) error {
		if err := needSecret(k); err != nil {
			return err
		}
		if lo, hi := typ.Lengths(); length < lo || length > hi {
			return invalid("%s keys must be %d to %d bits", typ, lo, hi)
		}
		if err := validExpiry(expires); err != nil {
			return err
		}

		// the addkey menu numbers differ between gpg versions
		var err error
		table, err = s.KeyTypes(ctx)
		return err
	}, func(*key.Key) edit.Automaton {
		return edit.AddSubkey(table, typ, length, expires)
	})
}

func (s *Service) DeleteSubkey(ctx context.Context, id string, subkey int) operation.Operation {
	return s.run(ctx, id, "delkey", func(k *key.Key) error {
		return validSubkey(k, subkey)
	}, func(*key.Key) edit.Automaton {
		return edit.DeleteSubkey(subkey)
	})
}

func (s *Service) RevokeSubkey(ctx context.Context, id string, subkey int, reason edit.RevokeReason, description string) operation.Operation {
	return s.run(ctx, id, "revkey", func(k *key.Key) error {
		if err := needSecret(k); err != nil {
			return err
		}
		if err := validSubkey(k, subkey); err != nil {
			return err
		}
		if sk, _ := k.Subkey(subkey); sk.Revoked {
			return invalid("subkey %d is already revoked", subkey)
		}
		return nil
	}, func(*key.Key) edit.Automaton {
		return edit.RevokeSubkey(subkey, reason, description)
	})
}

// AddPhoto attaches the jpeg at path as a new photo id.
func (s *Service) AddPhoto(ctx context.Context, id string, path string) operation.Operation {
	return s.run(ctx, id, "addphoto", func(k *key.Key) error {
		if err := needSecret(k); err != nil {
			return err
		}
		info, err := os.Stat(path)
		if err != nil {
			return invalid("photo %s: %v", path, err)
		}
		if !info.Mode().IsRegular() {
			return invalid("photo %s is not a file", path)
		}
		return nil
	}, func(*key.Key) edit.Automaton {
		return edit.AddPhoto(path)
	})
}

func validPhoto(k *key.Key, uid int) error {
	if err := validUID(k, uid); err != nil {
		return err
	}
	if u, _ := k.UID(uid); !u.Photo {
		return invalid("user id %d is not a photo", uid)
	}
	return nil
}

func (s *Service) DeletePhoto(ctx context.Context, id string, uid int) operation.Operation {
	return s.run(ctx, id, "deluid", func(k *key.Key) error {
		return validPhoto(k, uid)
	}, func(*key.Key) edit.Automaton {
		return edit.DeleteUID(uid)
	})
}

func (s *Service) PrimaryPhoto(ctx context.Context, id string, uid int) operation.Operation {
	return s.run(ctx, id, "primary", func(k *key.Key) error {
		if err := needSecret(k); err != nil {
			return err
		}
		return validPhoto(k, uid)
	}, func(*key.Key) edit.Automaton {
		return edit.Primary(uid)
	})
}
