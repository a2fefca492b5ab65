package sessions

import (
	"crypto/sha256"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
)

const (
	sessionName = "admin_session"
	adminIDKey  = "admin_id"
)

// Options — настройки cookie-хранилища.
type Options struct {
	Secret string
	Path   string
	MaxAge time.Duration
	Secure bool
}

// Store хранит id вошедшего админа в подписанной и зашифрованной cookie.
type Store struct {
	cookies *sessions.CookieStore
}

// NewStore выводит ключ подписи и ключ шифрования из opts.Secret.
func NewStore(opts Options) *Store {
	h := sha256.Sum256([]byte("auth:" + opts.Secret))
	e := sha256.Sum256([]byte("enc:" + opts.Secret))

	if opts.Path == "" {
		opts.Path = "/"
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 7 * 24 * time.Hour
	}

	cs := sessions.NewCookieStore(h[:], e[:])
	cs.Options = &sessions.Options{
		Path:     opts.Path,
		MaxAge:   int(opts.MaxAge / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   opts.Secure,
	}
	return &Store{cookies: cs}
}

func (s *Store) session(r *http.Request) (*sessions.Session, error) {
	return s.cookies.Get(r, sessionName)
}

func (s *Store) SetAdminID(w http.ResponseWriter, r *http.Request, adminID uint) error {
	sess, err := s.session(r)
	if err != nil {
		// cookie подписана старым секретом — начинаем заново
		sess, err = s.cookies.New(r, sessionName)
		if sess == nil {
			return err
		}
	}
	sess.Values[adminIDKey] = adminID
	return sess.Save(r, w)
}

func (s *Store) AdminID(r *http.Request) (uint, bool) {
	sess, err := s.session(r)
	if err != nil {
		return 0, false
	}
	v, ok := sess.Values[adminIDKey].(uint)
	return v, ok
}

func (s *Store) Clear(w http.ResponseWriter, r *http.Request) error {
	sess, err := s.session(r)
	if err != nil {
		sess, _ = s.cookies.New(r, sessionName)
	}
	delete(sess.Values, adminIDKey)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}
