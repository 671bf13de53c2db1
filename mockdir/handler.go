package mockdir

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/plukevdh/go-keydir/api"
	"github.com/plukevdh/go-keydir/cryptoutils"
	"github.com/plukevdh/go-keydir/interfaces"
)

// account is one directory principal with its credential material and
// raw record. The record is the source of truth for everything the
// directory serves about the account.
type account struct {
	username     string
	email        string
	salt         []byte
	passwordHash []byte
	record       api.RawUser
}

// Handler is an in-memory directory service speaking the keydir wire
// protocol. It runs the real handshake: per-account scrypt salts,
// single-use login-session nonces, and constant-time authenticator
// verification, so the client stack above it is exercised end to end.
//
// State lives in process memory and is guarded by one mutex; this is
// test and development infrastructure, not a production server.
type Handler struct {
	log      *slog.Logger
	tokenKey []byte

	mu            sync.Mutex
	accounts      map[string]*account          // by username
	loginSessions map[string][]byte            // identifier -> pending nonce
	sessions      map[interfaces.SessionToken]string // token -> username
}

// NewHandler creates an empty directory. The token key signs the auth
// tokens issued by post_auth; it must be non-empty.
func NewHandler(log *slog.Logger, tokenKey []byte) *Handler {
	return &Handler{
		log:           log,
		tokenKey:      tokenKey,
		accounts:      make(map[string]*account),
		loginSessions: make(map[string][]byte),
		sessions:      make(map[interfaces.SessionToken]string),
	}
}

// RegisterRoutes mounts the directory endpoints on a chi router. The
// caller decides the base path; Server mounts them under api.BasePath.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/getsalt.json", h.HandleGetSalt)
	r.Post("/login.json", h.HandleLogin)
	r.Post("/session/killall.json", h.HandleKillAll)
	r.Get("/user/lookup.json", h.HandleLookup)
	r.Get("/key/fetch.json", h.HandleKeyFetch)
	r.Post("/key/add.json", h.HandleKeyAdd)
	r.Post("/key/revoke.json", h.HandleKeyRevoke)
	r.Post("/sig/post_auth.json", h.HandlePostAuth)
}

// Router mounts the directory endpoints under api.BasePath on a fresh
// router, without health endpoints. Tests serve this directly through
// httptest; the standalone binary uses Server instead.
func (h *Handler) Router() http.Handler {
	mux := chi.NewRouter()
	mux.Route(api.BasePath, func(r chi.Router) {
		h.RegisterRoutes(r)
	})
	return mux
}

// AddAccount registers a directory account with a passphrase and a raw
// record. The salt is generated here and the passphrase hardened with
// the same parameters the client uses, so real logins verify.
func (h *Handler) AddAccount(username, email, passphrase string, record api.RawUser) error {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return err
	}

	passwordHash, err := cryptoutils.HardenPassphrase(passphrase, salt)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.accounts[username] = &account{
		username:     username,
		email:        email,
		salt:         salt,
		passwordHash: passwordHash,
		record:       record,
	}
	return nil
}

// writeJSON writes a response body. Protocol failures still travel as
// 200s with a non-OK status envelope; only transport-level breakage
// uses HTTP error codes.
func (h *Handler) writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error("could not encode response", "err", err)
	}
}

// findAccount resolves a login identifier, which may be a username or
// an email address. Caller must hold the mutex.
func (h *Handler) findAccount(identifier string) *account {
	if acct, ok := h.accounts[identifier]; ok {
		return acct
	}
	for _, acct := range h.accounts {
		if acct.email != "" && acct.email == identifier {
			return acct
		}
	}
	return nil
}

// sessionAccount resolves the session header to the account that owns
// the token. Caller must hold the mutex.
func (h *Handler) sessionAccount(r *http.Request) *account {
	token := interfaces.SessionToken(r.Header.Get(api.SessionHeader))
	if token == "" {
		return nil
	}
	username, ok := h.sessions[token]
	if !ok {
		return nil
	}
	return h.accounts[username]
}

// HandleGetSalt begins a login handshake: it discloses the account
// salt and issues a fresh single-use login-session nonce bound to the
// identifier.
func (h *Handler) HandleGetSalt(w http.ResponseWriter, r *http.Request) {
	identifier := r.URL.Query().Get("email_or_username")
	if identifier == "" {
		h.writeJSON(w, api.SaltResponse{Status: api.StatusFor(api.StatusInputError, "email_or_username is required")})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	acct := h.findAccount(identifier)
	if acct == nil {
		h.writeJSON(w, api.SaltResponse{Status: api.StatusFor(api.StatusNotFound, "no such account")})
		return
	}

	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		http.Error(w, "entropy exhausted", http.StatusInternalServerError)
		return
	}
	h.loginSessions[identifier] = nonce

	h.writeJSON(w, api.SaltResponse{
		Status:       api.StatusFor(api.StatusOK, ""),
		Salt:         hex.EncodeToString(acct.salt),
		LoginSession: base64.StdEncoding.EncodeToString(nonce),
	})
}

// HandleLogin finishes the handshake. The submitted authenticator is
// recomputed from the stored password hash over the nonce issued by
// getsalt and compared in constant time; the nonce is consumed either
// way, so a failed attempt cannot be replayed.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.writeJSON(w, api.LoginResponse{Status: api.StatusFor(api.StatusInputError, "malformed form body")})
		return
	}
	identifier := r.PostFormValue("email_or_username")
	authenticator := r.PostFormValue("hmac_pwh")
	loginSession := r.PostFormValue("login_session")
	if identifier == "" || authenticator == "" || loginSession == "" {
		h.writeJSON(w, api.LoginResponse{Status: api.StatusFor(api.StatusInputError, "email_or_username, hmac_pwh and login_session are required")})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	acct := h.findAccount(identifier)
	if acct == nil {
		h.writeJSON(w, api.LoginResponse{Status: api.StatusFor(api.StatusNotFound, "no such account")})
		return
	}

	nonce, ok := h.loginSessions[identifier]
	delete(h.loginSessions, identifier)
	if !ok || base64.StdEncoding.EncodeToString(nonce) != loginSession {
		h.writeJSON(w, api.LoginResponse{Status: api.StatusFor(api.StatusBadCredential, "stale login session")})
		return
	}

	match, err := cryptoutils.VerifyAuthenticator(acct.passwordHash, nonce, authenticator)
	if err != nil || !match {
		h.writeJSON(w, api.LoginResponse{Status: api.StatusFor(api.StatusBadCredential, "authenticator mismatch")})
		return
	}

	token := interfaces.SessionToken(uuid.Must(uuid.NewRandom()).String())
	h.sessions[token] = acct.username

	h.log.Info("session issued", "username", acct.username)
	record := acct.record
	h.writeJSON(w, api.LoginResponse{
		Status:  api.StatusFor(api.StatusOK, ""),
		Session: token.String(),
		Me:      &record,
	})
}

// HandleKillAll terminates every session of the calling account,
// including the one presenting the token.
func (h *Handler) HandleKillAll(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	acct := h.sessionAccount(r)
	if acct == nil {
		h.writeJSON(w, api.StatusResponse{Status: api.StatusFor(api.StatusBadSession, "no live session for token")})
		return
	}

	for token, username := range h.sessions {
		if username == acct.username {
			delete(h.sessions, token)
		}
	}

	h.log.Info("sessions terminated", "username", acct.username)
	h.writeJSON(w, api.StatusResponse{Status: api.StatusFor(api.StatusOK, "")})
}

// HandleLookup serves the public view of a record: private keys,
// emails, and invitation stats are the owner's business and never
// leave through this endpoint.
func (h *Handler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		h.writeJSON(w, api.LookupResponse{Status: api.StatusFor(api.StatusInputError, "username is required")})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	acct, ok := h.accounts[username]
	if !ok {
		h.writeJSON(w, api.LookupResponse{Status: api.StatusFor(api.StatusNotFound, "no such user")})
		return
	}

	public := acct.record
	public.PrivateKeys = nil
	public.Emails = nil
	public.InvitationStats = nil

	h.writeJSON(w, api.LookupResponse{
		Status: api.StatusFor(api.StatusOK, ""),
		Them:   &public,
	})
}

// HandleKeyFetch serves public key records by kid. The operation mask
// is validated for shape, but this directory tracks no per-key
// capabilities, so any well-formed mask matches every key. Results
// follow the requested kid order; unknown kids are silently absent.
func (h *Handler) HandleKeyFetch(w http.ResponseWriter, r *http.Request) {
	kids := r.URL.Query().Get("kids")
	opsRaw := r.URL.Query().Get("ops")
	if kids == "" || opsRaw == "" {
		h.writeJSON(w, api.KeyFetchResponse{Status: api.StatusFor(api.StatusInputError, "kids and ops are required")})
		return
	}

	mask, err := strconv.Atoi(opsRaw)
	if err != nil || mask <= 0 || mask > 15 {
		h.writeJSON(w, api.KeyFetchResponse{Status: api.StatusFor(api.StatusInputError, "ops must be a mask over the four key operations")})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var keys []api.RawKey
	for _, kid := range strings.Split(kids, ",") {
		for _, acct := range h.accounts {
			if raw, ok := findPublicKey(&acct.record, kid); ok {
				keys = append(keys, raw)
				break
			}
		}
	}

	h.writeJSON(w, api.KeyFetchResponse{
		Status: api.StatusFor(api.StatusOK, ""),
		Keys:   keys,
	})
}

// HandleKeyAdd registers a public key or stores a private bundle for
// the authenticated account. A private bundle for an account with no
// published public key is rejected: the protocol requires the public
// half first, and this check is the service side of that contract.
func (h *Handler) HandleKeyAdd(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.writeJSON(w, api.KeyAddResponse{Status: api.StatusFor(api.StatusInputError, "malformed form body")})
		return
	}
	publicKey := r.PostFormValue("public_key")
	privateKey := r.PostFormValue("private_key")

	h.mu.Lock()
	defer h.mu.Unlock()

	acct := h.sessionAccount(r)
	if acct == nil {
		h.writeJSON(w, api.KeyAddResponse{Status: api.StatusFor(api.StatusBadSession, "no live session for token")})
		return
	}

	switch {
	case publicKey != "" && privateKey == "":
		kid := newKid()
		addKeyToBundle(&acct.record.PublicKeys, api.RawKey{Kid: kid, Bundle: publicKey, SelfSigned: 1})
		h.log.Info("public key added", "username", acct.username, "kid", kid)
		h.writeJSON(w, api.KeyAddResponse{Status: api.StatusFor(api.StatusOK, ""), Kid: kid})

	case privateKey != "" && publicKey == "":
		if acct.record.PublicKeys == nil {
			h.writeJSON(w, api.KeyAddResponse{Status: api.StatusFor(api.StatusInputError, "no public key on record: upload the public half first")})
			return
		}
		kid := newKid()
		addKeyToBundle(&acct.record.PrivateKeys, api.RawKey{Kid: kid, Bundle: privateKey, Secret: 1})
		h.log.Info("private key added", "username", acct.username, "kid", kid)
		h.writeJSON(w, api.KeyAddResponse{Status: api.StatusFor(api.StatusOK, ""), Kid: kid})

	default:
		h.writeJSON(w, api.KeyAddResponse{Status: api.StatusFor(api.StatusInputError, "exactly one of public_key or private_key is required")})
	}
}

// HandleKeyRevoke destructively deletes a key belonging to the
// authenticated account. Kids on other accounts, or unknown ones, are
// not found; the protocol has no revocation certificates to check.
func (h *Handler) HandleKeyRevoke(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.writeJSON(w, api.StatusResponse{Status: api.StatusFor(api.StatusInputError, "malformed form body")})
		return
	}
	kid := r.PostFormValue("kid")
	if kid == "" {
		h.writeJSON(w, api.StatusResponse{Status: api.StatusFor(api.StatusInputError, "kid is required")})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	acct := h.sessionAccount(r)
	if acct == nil {
		h.writeJSON(w, api.StatusResponse{Status: api.StatusFor(api.StatusBadSession, "no live session for token")})
		return
	}

	if !removeKey(&acct.record.PublicKeys, kid) && !removeKey(&acct.record.PrivateKeys, kid) {
		h.writeJSON(w, api.StatusResponse{Status: api.StatusFor(api.StatusNotFound, "no such key on this account")})
		return
	}

	h.log.Info("key revoked", "username", acct.username, "kid", kid)
	h.writeJSON(w, api.StatusResponse{Status: api.StatusFor(api.StatusOK, "")})
}

// HandlePostAuth verifies a posted certificate payload and issues the
// auth token digest over its delimited range. Verification here is
// structural only: the payload must carry the certificate delimiters
// and name the calling account.
func (h *Handler) HandlePostAuth(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.writeJSON(w, api.PostAuthResponse{Status: api.StatusFor(api.StatusInputError, "malformed form body")})
		return
	}
	username := r.PostFormValue("email_or_username")
	sig := r.PostFormValue("sig")
	if username == "" || sig == "" {
		h.writeJSON(w, api.PostAuthResponse{Status: api.StatusFor(api.StatusInputError, "email_or_username and sig are required")})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	acct := h.sessionAccount(r)
	if acct == nil {
		h.writeJSON(w, api.PostAuthResponse{Status: api.StatusFor(api.StatusBadSession, "no live session for token")})
		return
	}
	if username != acct.username && username != acct.email {
		h.writeJSON(w, api.PostAuthResponse{Status: api.StatusFor(api.StatusVerificationFailed, "signature does not name the calling account")})
		return
	}

	token, err := cryptoutils.AuthTokenDigest([]byte(sig), h.tokenKey)
	if err != nil {
		h.writeJSON(w, api.PostAuthResponse{Status: api.StatusFor(api.StatusVerificationFailed, "payload is not a delimited certificate")})
		return
	}

	h.log.Info("signature accepted", "username", acct.username)
	h.writeJSON(w, api.PostAuthResponse{
		Status:    api.StatusFor(api.StatusOK, ""),
		AuthToken: token,
	})
}

// newKid mints a service-issued key ID: 32 hex characters, the form
// the client-side validators accept.
func newKid() string {
	id := uuid.Must(uuid.NewRandom())
	return hex.EncodeToString(id[:])
}

// addKeyToBundle inserts a key into a raw bundle, creating the bundle
// with the key as primary when none exists yet, and keying later keys
// into the subkeys map by kid the way the real service does.
func addKeyToBundle(bundle **api.RawKeyBundle, key api.RawKey) {
	if *bundle == nil {
		k := key
		*bundle = &api.RawKeyBundle{Primary: &k}
		return
	}
	if (*bundle).Subkeys == nil {
		(*bundle).Subkeys = make(map[string]api.RawKey)
	}
	(*bundle).Subkeys[key.Kid] = key
}

// removeKey deletes a kid from a raw bundle. Revoking the primary
// drops the whole bundle half: the directory keeps no orphan subkeys.
func removeKey(bundle **api.RawKeyBundle, kid string) bool {
	if *bundle == nil {
		return false
	}
	if (*bundle).Primary != nil && (*bundle).Primary.Kid == kid {
		*bundle = nil
		return true
	}
	if _, ok := (*bundle).Subkeys[kid]; ok {
		delete((*bundle).Subkeys, kid)
		return true
	}
	for family, keys := range (*bundle).Families {
		for i, key := range keys {
			if key.Kid == kid {
				(*bundle).Families[family] = append(keys[:i:i], keys[i+1:]...)
				return true
			}
		}
	}
	return false
}

// findPublicKey looks a kid up across a record's public bundle.
func findPublicKey(record *api.RawUser, kid string) (api.RawKey, bool) {
	bundle := record.PublicKeys
	if bundle == nil {
		return api.RawKey{}, false
	}
	if bundle.Primary != nil && bundle.Primary.Kid == kid {
		return *bundle.Primary, true
	}
	if key, ok := bundle.Subkeys[kid]; ok {
		return key, true
	}
	if key, ok := bundle.Sibkeys[kid]; ok {
		return key, true
	}
	for _, keys := range bundle.Families {
		for _, key := range keys {
			if key.Kid == kid {
				return key, true
			}
		}
	}
	return api.RawKey{}, false
}
