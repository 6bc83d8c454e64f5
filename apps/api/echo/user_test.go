package echoapi_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core/policy"
	"github.com/trezcool/shule/core/user"
)

func Test_userApi_login(t *testing.T) {
	app := setup(t)

	app.createUser(t, "Awa", policy.RoleAdmin, "", "", true)
	app.createUser(t, "Dormeur", policy.RoleParent, "", "", false)

	tests := []httpTest{
		{
			name:     "empty payload",
			body:     []byte("{}"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "this field is required", "password": "this field is required"}),
		},
		{
			name:     "unknown email",
			body:     marchallObj(t, LoginRequest{Email: "ghost@shule.cd", Password: "LeTresBonMotDePasse"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "wrong password",
			body:     marchallObj(t, LoginRequest{Email: "awa@shule.cd", Password: "PasLeBon"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "deactivated account",
			body:     marchallObj(t, LoginRequest{Email: "dormeur@shule.cd", Password: "LeTresBonMotDePasse"}),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name:     "success",
			body:     marchallObj(t, LoginRequest{Email: "awa@shule.cd", Password: "LeTresBonMotDePasse"}),
			wantCode: http.StatusOK,
			extra:    "checkToken",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			app.server.ServeHTTP(rec, req)

			if tt.extra == "checkToken" {
				require.Equal(t, tt.wantCode, rec.Code)
				var resp LoginResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.NotEmpty(t, resp.Token)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_retrieveSelf(t *testing.T) {
	app := setup(t)
	usr := app.createUser(t, "Patrice", policy.RoleTeacher, "", "", true)

	tests := []httpTest{
		{
			name:     "no token",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "me",
			token:    app.getToken(t, usr),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, usr),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/users/me", tt.token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_query(t *testing.T) {
	app := setup(t)

	admin := app.createUser(t, "Awa", policy.RoleAdmin, "", "", true)
	prof := app.createUser(t, "Patrice", policy.RoleTeacher, "", "", true)
	eleve := app.createUser(t, "Junior", policy.RoleStudent, "", "", true)

	tests := []httpTest{
		{
			name:     "no token",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "listing is admin only",
			token:    app.getToken(t, prof),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "eleve cannot list either",
			token:    app.getToken(t, eleve),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "admin lists everyone",
			token:    app.getToken(t, admin),
			wantCode: http.StatusOK,
			wantData: marchallList(t, admin, prof, eleve),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/users", tt.token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_forgedRoleClaim(t *testing.T) {
	app := setup(t)

	app.createUser(t, "Awa", policy.RoleAdmin, "", "", true)
	eleve := app.createUser(t, "Junior", policy.RoleStudent, "", "", true)

	// a token claiming admin for a stored eleve; the role is re-read from
	// storage on every request so the claim buys nothing
	claims := GetUserClaims(app.conf, eleve)
	claims.Role = policy.RoleAdmin
	token, err := GenerateToken(app.conf, claims)
	require.NoError(t, err)

	req, rec := newAuthRequest(http.MethodGet, "/v1/users", token)
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusForbidden,
		wantData: marchallObj(t, httpErr{Error: "permission denied"}),
	}, rec)
}

func Test_userApi_retrieve(t *testing.T) {
	app := setup(t)

	admin := app.createUser(t, "Awa", policy.RoleAdmin, "", "", true)
	prof := app.createUser(t, "Patrice", policy.RoleTeacher, "", "", true)
	eleve := app.createUser(t, "Junior", policy.RoleStudent, "", "", true)

	tests := []httpTest{
		{
			name:     "admin retrieves anyone",
			path:     "/v1/users/" + eleve.ID,
			token:    app.getToken(t, admin),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, eleve),
		},
		{
			name:     "self detail",
			path:     "/v1/users/" + eleve.ID,
			token:    app.getToken(t, eleve),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, eleve),
		},
		{
			name:     "someone else's record reads as missing",
			path:     "/v1/users/" + eleve.ID,
			token:    app.getToken(t, prof),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_create(t *testing.T) {
	app := setup(t)

	admin := app.createUser(t, "Awa", policy.RoleAdmin, "", "", true)
	prof := app.createUser(t, "Patrice", policy.RoleTeacher, "", "", true)
	cls := app.createClass(t, "6eme A")

	newUser := func(email, role, classID string) []byte {
		return marchallObj(t, user.NewUser{
			Name:            "Nouveau",
			Surname:         "Venu",
			Email:           email,
			Password:        "LeTresBonMotDePasse",
			PasswordConfirm: "LeTresBonMotDePasse",
			Role:            role,
			ClassID:         classID,
		})
	}

	t.Run("registration is admin only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", app.getToken(t, prof), newUser("nouveau@shule.cd", policy.RoleStudent, ""))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}, rec)
	})

	t.Run("unknown role rejected", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", app.getToken(t, admin), newUser("nouveau@shule.cd", "directeur", ""))
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "role")
	})

	t.Run("parent cannot be enrolled in a class", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", app.getToken(t, admin), newUser("nouveau@shule.cd", policy.RoleParent, cls.ID))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"class_id": "only eleves and professeurs belong to a class"}),
		}, rec)
	})

	t.Run("admin registers an eleve", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", app.getToken(t, admin), newUser("nouveau@shule.cd", policy.RoleStudent, cls.ID))
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)

		var created user.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "nouveau@shule.cd", created.Email)
		assert.Equal(t, policy.RoleStudent, created.Role)
		assert.Equal(t, cls.ID, created.ClassID)
		assert.True(t, created.IsActive)
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", app.getToken(t, admin), newUser("nouveau@shule.cd", policy.RoleStudent, ""))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "a user with this email already exists"}),
		}, rec)
	})
}

func Test_userApi_destroy(t *testing.T) {
	app := setup(t)

	admin := app.createUser(t, "Awa", policy.RoleAdmin, "", "", true)
	prof := app.createUser(t, "Patrice", policy.RoleTeacher, "", "", true)

	t.Run("no self-deletion", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+admin.ID, app.getToken(t, admin))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}, rec)
	})

	t.Run("admin deletes, idempotence surfaces as 404", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+prof.ID, app.getToken(t, admin))
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		req, rec = newAuthRequest(http.MethodDelete, "/v1/users/"+prof.ID, app.getToken(t, admin))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		}, rec)
	})
}
