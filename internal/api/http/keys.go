package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/seahorsehq/seahorse/internal/edit"
	"github.com/seahorsehq/seahorse/internal/util"
	"github.com/seahorsehq/seahorse/pkg/key"
	"github.com/seahorsehq/seahorse/pkg/operation"
)

// List Keys

type ListKeysParams struct {
	Secret bool `form:"secret" json:"secret"`
}

func (s *server) listKeys(c *gin.Context) {
	var params ListKeysParams
	if err := c.ShouldBindQuery(&params); err != nil {
		writeBindingError(c, err)
		return
	}

	keys, err := s.deps.Keys.ListKeys(c.Request.Context(), params.Secret)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

// fingerprint reads and validates the :fpr path parameter.
func fingerprint(c *gin.Context) (string, bool) {
	fpr := util.NormalizeFingerprint(c.Param("fpr"))
	if !util.IsFingerprint(fpr) {
		writeError(c, operation.Errorf(operation.InvalidArgument, "%q is not a key id or fingerprint", c.Param("fpr")))
		return "", false
	}
	return fpr, true
}

// Set Trust

type SetTrustBody struct {
	Trust string `json:"trust" binding:"required,oneofci=unknown never marginal full ultimate"`
}

func (s *server) setTrust(c *gin.Context) {
	fpr, ok := fingerprint(c)
	if !ok {
		return
	}

	var body SetTrustBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeBindingError(c, err)
		return
	}

	trust, err := key.ParseOwnerTrust(body.Trust)
	util.Assert(err == nil, "validated trust must parse")

	op := s.deps.Keys.SetTrust(c.Request.Context(), fpr, trust)
	s.register(c, op, "set trust of "+fpr+" to "+trust.String())
}

// Sign Key

type SignKeyBody struct {
	UID          int    `json:"uid" binding:"gte=0"`
	Check        string `json:"check" binding:"omitempty,oneofci=none casual careful"`
	Local        bool   `json:"local"`
	NonRevocable bool   `json:"nonRevocable"`
	Expires      bool   `json:"expires"`
	Signer       string `json:"signer" binding:"omitempty,fingerprint"`
}

func (b *SignKeyBody) check() edit.Check {
	check, err := edit.ParseCheck(b.Check)
	util.Assert(err == nil, "validated check must parse")
	return check
}

func (b *SignKeyBody) options() edit.SignOption {
	var options edit.SignOption
	if b.Local {
		options |= edit.SignLocal
	}
	if b.NonRevocable {
		options |= edit.SignNoRevoke
	}
	if b.Expires {
		options |= edit.SignExpires
	}
	return options
}

func (s *server) signKey(c *gin.Context) {
	fpr, ok := fingerprint(c)
	if !ok {
		return
	}

	var body SignKeyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeBindingError(c, err)
		return
	}

	op := s.deps.Keys.Sign(c.Request.Context(), fpr, body.UID, body.check(), body.options(), body.Signer)
	s.register(c, op, "sign "+fpr)
}

// Set Expires

type SetExpiresBody struct {
	Subkey int `json:"subkey" binding:"gte=0"`

	// Expires is the new expiry, zero never expires.
	Expires time.Time `json:"expires"`
}

func (s *server) setExpires(c *gin.Context) {
	fpr, ok := fingerprint(c)
	if !ok {
		return
	}

	var body SetExpiresBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeBindingError(c, err)
		return
	}

	op := s.deps.Keys.SetExpires(c.Request.Context(), fpr, body.Subkey, body.Expires)
	s.register(c, op, "set expiry of "+fpr)
}
