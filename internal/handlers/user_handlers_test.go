package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/digital_store/internal/hash"
	"github.com/Skotchmaster/digital_store/internal/jwtmiddleware"
	"github.com/Skotchmaster/digital_store/internal/models"
	"github.com/Skotchmaster/digital_store/internal/mykafka"
)

var userSecret = []byte("user-test-secret")

func newUserHandler(t *testing.T) (*UserHandler, *gorm.DB) {
	db := initTestDB(t)
	return &UserHandler{DB: db, Producer: &mykafka.Producer{}, JWTSecret: userSecret}, db
}

func seedUser(t *testing.T, db *gorm.DB, email, password string) models.User {
	t.Helper()
	passwordHash, err := hash.HashPassword(password)
	require.NoError(t, err)
	u := models.User{
		Firstname:    "Ada",
		Surname:      "Lovelace",
		Email:        email,
		PasswordHash: passwordHash,
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func TestCreateUser(t *testing.T) {
	h, db := newUserHandler(t)

	rec, c := doJSON(t, http.MethodPost, "/v1/user", map[string]string{
		"firstname":       "Ada",
		"surname":         "Lovelace",
		"email":           "ada@example.com",
		"password":        "secret123",
		"confirmPassword": "secret123",
	})
	require.NoError(t, h.CreateUser(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "user created", decodeBody(t, rec)["message"])

	var saved models.User
	require.NoError(t, db.Where("email = ?", "ada@example.com").First(&saved).Error)
	require.NotEqual(t, "secret123", saved.PasswordHash)
	require.True(t, hash.CheckPassword(saved.PasswordHash, "secret123"))
}

func TestCreateUserValidation(t *testing.T) {
	h, db := newUserHandler(t)

	// missing field
	_, c := doJSON(t, http.MethodPost, "/v1/user", map[string]string{
		"firstname":       "Ada",
		"email":           "ada@example.com",
		"password":        "secret123",
		"confirmPassword": "secret123",
	})
	require.Equal(t, http.StatusBadRequest, httpErrCode(t, h.CreateUser(c)))

	// confirmation mismatch
	_, c = doJSON(t, http.MethodPost, "/v1/user", map[string]string{
		"firstname":       "Ada",
		"surname":         "Lovelace",
		"email":           "ada@example.com",
		"password":        "secret123",
		"confirmPassword": "other",
	})
	require.Equal(t, http.StatusBadRequest, httpErrCode(t, h.CreateUser(c)))

	require.EqualValues(t, 0, countRows(t, db, &models.User{}, ""))
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	h, db := newUserHandler(t)
	seedUser(t, db, "ada@example.com", "secret123")

	_, c := doJSON(t, http.MethodPost, "/v1/user", map[string]string{
		"firstname":       "Other",
		"surname":         "Person",
		"email":           "ada@example.com",
		"password":        "secret123",
		"confirmPassword": "secret123",
	})
	require.Equal(t, http.StatusBadRequest, httpErrCode(t, h.CreateUser(c)))
	require.EqualValues(t, 1, countRows(t, db, &models.User{}, ""))
}

func TestGenerateToken(t *testing.T) {
	h, db := newUserHandler(t)
	u := seedUser(t, db, "ada@example.com", "secret123")

	rec, c := doJSON(t, http.MethodPost, "/v1/user/token", map[string]string{
		"email":    "ada@example.com",
		"password": "secret123",
	})
	require.NoError(t, h.GenerateToken(c))
	require.Equal(t, http.StatusOK, rec.Code)

	token, ok := decodeBody(t, rec)["token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)

	claims, err := jwtmiddleware.ParseToken(token, userSecret)
	require.NoError(t, err)
	require.EqualValues(t, u.ID, claims["id"])
	require.Equal(t, "ada@example.com", claims["email"])
	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(jwtmiddleware.TokenTTL), exp.Time, time.Minute)
}

func TestGenerateTokenRejects(t *testing.T) {
	h, db := newUserHandler(t)
	seedUser(t, db, "ada@example.com", "secret123")

	cases := []map[string]string{
		{"email": "ada@example.com", "password": "wrong"},
		{"email": "nobody@example.com", "password": "secret123"},
		{"email": "ada@example.com"},
		{"password": "secret123"},
	}
	for _, body := range cases {
		_, c := doJSON(t, http.MethodPost, "/v1/user/token", body)
		require.Equal(t, http.StatusBadRequest, httpErrCode(t, h.GenerateToken(c)))
	}
}

func TestGetUser(t *testing.T) {
	h, db := newUserHandler(t)
	u := seedUser(t, db, "ada@example.com", "secret123")

	rec, c := doJSON(t, http.MethodGet, "/v1/user/1", nil)
	setID(c, "1")
	require.NoError(t, h.GetUser(c))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	require.EqualValues(t, u.ID, body["id"])
	require.Equal(t, "Ada", body["firstname"])
	require.Equal(t, "Lovelace", body["surname"])
	require.Equal(t, "ada@example.com", body["email"])
	require.NotContains(t, body, "password_hash")

	_, c = doJSON(t, http.MethodGet, "/v1/user/99", nil)
	setID(c, "99")
	require.Equal(t, http.StatusNotFound, httpErrCode(t, h.GetUser(c)))
}

func TestUpdateUser(t *testing.T) {
	h, db := newUserHandler(t)
	u := seedUser(t, db, "ada@example.com", "secret123")

	rec, c := doJSON(t, http.MethodPut, "/v1/user/1", map[string]string{
		"firstname": "Grace",
		"surname":   "Hopper",
		"email":     "grace@example.com",
	})
	setID(c, "1")
	require.NoError(t, h.UpdateUser(c))
	require.Equal(t, http.StatusNoContent, rec.Code)

	var saved models.User
	require.NoError(t, db.First(&saved, u.ID).Error)
	require.Equal(t, "Grace", saved.Firstname)
	require.Equal(t, "grace@example.com", saved.Email)
	require.Equal(t, u.PasswordHash, saved.PasswordHash, "update never touches the hash")

	// all three fields are mandatory
	_, c = doJSON(t, http.MethodPut, "/v1/user/1", map[string]string{"firstname": "Grace"})
	setID(c, "1")
	require.Equal(t, http.StatusBadRequest, httpErrCode(t, h.UpdateUser(c)))
}

func TestDeleteUser(t *testing.T) {
	h, db := newUserHandler(t)
	seedUser(t, db, "ada@example.com", "secret123")

	rec, c := doJSON(t, http.MethodDelete, "/v1/user/1", nil)
	setID(c, "1")
	require.NoError(t, h.DeleteUser(c))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.EqualValues(t, 0, countRows(t, db, &models.User{}, ""))

	_, c = doJSON(t, http.MethodDelete, "/v1/user/1", nil)
	setID(c, "1")
	require.Equal(t, http.StatusNotFound, httpErrCode(t, h.DeleteUser(c)))
}
