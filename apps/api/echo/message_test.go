package echoapi_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core/message"
	"github.com/trezcool/shule/core/policy"
)

func Test_messageApi(t *testing.T) {
	app := setup(t)

	admin := app.createUser(t, "Awa", policy.RoleAdmin, "", "", true)
	prof := app.createUser(t, "Patrice", policy.RoleTeacher, "", "", true)
	parent := app.createUser(t, "Mireille", policy.RoleParent, "", "", true)
	eleve := app.createUser(t, "Junior", policy.RoleStudent, "", parent.ID, true)

	send := func(token, recipientID, body string) *message.Message {
		data := marchallObj(t, message.NewMessage{RecipientID: recipientID, Body: body})
		req, rec := newAuthRequest(http.MethodPost, "/v1/messages", token, data)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			return nil
		}
		var msg message.Message
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
		return &msg
	}

	t.Run("eleve cannot send", func(t *testing.T) {
		data := marchallObj(t, message.NewMessage{RecipientID: prof.ID, Body: "bonjour"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/messages", app.getToken(t, eleve), data)
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}, rec)
	})

	t.Run("eleve cannot receive", func(t *testing.T) {
		data := marchallObj(t, message.NewMessage{RecipientID: eleve.ID, Body: "bonjour"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/messages", app.getToken(t, prof), data)
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"recipient_id": "eleves cannot receive messages"}),
		}, rec)
	})

	msg := send(app.getToken(t, prof), parent.ID, "Junior progresse bien")
	require.NotNil(t, msg)

	t.Run("parties see the thread, eleve is shut out", func(t *testing.T) {
		tests := []httpTest{
			{name: "sender", token: app.getToken(t, prof), wantCode: http.StatusOK, wantData: marchallList(t, msg)},
			{name: "recipient", token: app.getToken(t, parent), wantCode: http.StatusOK, wantData: marchallList(t, msg)},
			{name: "admin", token: app.getToken(t, admin), wantCode: http.StatusOK, wantData: marchallList(t, msg)},
			{
				name: "eleve", token: app.getToken(t, eleve),
				wantCode: http.StatusForbidden,
				wantData: marchallObj(t, httpErr{Error: "permission denied"}),
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req, rec := newAuthRequest(http.MethodGet, "/v1/messages", tt.token)
				app.server.ServeHTTP(rec, req)
				checkCodeAndData(t, tt, rec)
			})
		}
	})

	t.Run("only the recipient toggles the read flag", func(t *testing.T) {
		body := marchallObj(t, message.MarkMessageRead{Read: true})

		req, rec := newAuthRequest(http.MethodPut, "/v1/messages/"+msg.ID+"/read", app.getToken(t, prof), body)
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}, rec)

		req, rec = newAuthRequest(http.MethodPut, "/v1/messages/"+msg.ID+"/read", app.getToken(t, parent), body)
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var updated message.Message
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
		assert.True(t, updated.Read)
	})

	t.Run("deletion is admin only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/messages/"+msg.ID, app.getToken(t, prof))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}, rec)

		req, rec = newAuthRequest(http.MethodDelete, "/v1/messages/"+msg.ID, app.getToken(t, admin))
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}
