package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/roomcast/internal/models"
	"github.com/desertthunder/roomcast/internal/repositories"
	"github.com/desertthunder/roomcast/internal/rooms"
	"github.com/desertthunder/roomcast/internal/shared"
	tu "github.com/desertthunder/roomcast/internal/testing"
)

func setupBinder(t *testing.T) (*Binder, *rooms.Directory, *repositories.RoomRepository) {
	t.Helper()

	db := tu.SetupTestDB(t)
	roomRepo := repositories.NewRoomRepository(db)
	dir := rooms.NewDirectory(rooms.DirectoryOpts{Store: roomRepo})
	return NewBinder(dir, repositories.NewSessionRepository(db)), dir, roomRepo
}

func TestBinder(t *testing.T) {
	ctx := context.Background()

	t.Run("Bind Unknown Room", func(t *testing.T) {
		b, _, _ := setupBinder(t)

		if _, err := b.Bind(ctx, "s1", "NOPE00"); !errors.Is(err, shared.ErrRoomNotFound) {
			t.Errorf("expected ErrRoomNotFound, got %v", err)
		}
		if code, _ := b.Current(ctx, "s1"); code != "" {
			t.Errorf("expected no binding, got %q", code)
		}
	})

	t.Run("Bind And Resolve", func(t *testing.T) {
		b, dir, _ := setupBinder(t)
		room, _, err := dir.CreateOrUpdate(ctx, "host", rooms.Settings{VotesToSkip: 2})
		if err != nil {
			t.Fatalf("failed to create room: %v", err)
		}

		tests := []struct {
			name    string
			session string
			role    models.Role
		}{
			{"Host", "host", models.RoleHost},
			{"Guest", "guest", models.RoleGuest},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if _, err := b.Bind(ctx, tt.session, room.Code); err != nil {
					t.Fatalf("expected no error, got %v", err)
				}

				got, role, err := b.Resolve(ctx, tt.session)
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if got.Code != room.Code {
					t.Errorf("expected room %s, got %s", room.Code, got.Code)
				}
				if role != tt.role {
					t.Errorf("expected role %s, got %s", tt.role, role)
				}
			})
		}
	})

	t.Run("Unbind Keeps Room", func(t *testing.T) {
		b, dir, _ := setupBinder(t)
		room, _, _ := dir.CreateOrUpdate(ctx, "host", rooms.Settings{VotesToSkip: 1})
		b.Bind(ctx, "host", room.Code)

		if err := b.Unbind(ctx, "host"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, _, err := b.Resolve(ctx, "host"); !errors.Is(err, shared.ErrNotInRoom) {
			t.Errorf("expected ErrNotInRoom, got %v", err)
		}
		if _, err := dir.FindByCode(ctx, room.Code); err != nil {
			t.Errorf("expected room to survive host leaving, got %v", err)
		}
	})

	t.Run("Dangling Binding Is Cleared", func(t *testing.T) {
		b, dir, repo := setupBinder(t)
		room, _, _ := dir.CreateOrUpdate(ctx, "host", rooms.Settings{VotesToSkip: 1})
		b.Bind(ctx, "guest", room.Code)

		if _, err := repo.DeleteStale(ctx, room.ActiveAt.Add(1)); err != nil {
			t.Fatalf("failed to delete room: %v", err)
		}

		if _, _, err := b.Resolve(ctx, "guest"); !errors.Is(err, shared.ErrRoomNotFound) {
			t.Fatalf("expected ErrRoomNotFound, got %v", err)
		}
		if code, _ := b.Current(ctx, "guest"); code != "" {
			t.Errorf("expected binding cleared, got %q", code)
		}
	})

	t.Run("Bind And Resolve Record Activity", func(t *testing.T) {
		db := tu.SetupTestDB(t)
		dir := rooms.NewDirectory(rooms.DirectoryOpts{Store: repositories.NewRoomRepository(db)})
		finder := &touchCounter{RoomFinder: dir}
		b := NewBinder(finder, repositories.NewSessionRepository(db))

		room, _, err := dir.CreateOrUpdate(ctx, "host", rooms.Settings{VotesToSkip: 1})
		if err != nil {
			t.Fatalf("failed to create room: %v", err)
		}

		if _, err := b.Bind(ctx, "guest", room.Code); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, _, err := b.Resolve(ctx, "guest"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(finder.touched) != 2 || finder.touched[0] != room.Code || finder.touched[1] != room.Code {
			t.Errorf("expected two touches of %s, got %v", room.Code, finder.touched)
		}

		if _, _, err := b.Resolve(ctx, "stranger"); !errors.Is(err, shared.ErrNotInRoom) {
			t.Fatalf("expected ErrNotInRoom, got %v", err)
		}
		if len(finder.touched) != 2 {
			t.Errorf("an unbound session must not touch a room, got %v", finder.touched)
		}
	})
}

// touchCounter records the codes passed to Touch.
type touchCounter struct {
	RoomFinder
	touched []string
}

func (c *touchCounter) Touch(ctx context.Context, code string) error {
	c.touched = append(c.touched, code)
	return c.RoomFinder.Touch(ctx, code)
}

func TestMiddleware(t *testing.T) {
	var seen string
	handler := Middleware(CookieOpts{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))

	t.Run("Mints Session", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		cookies := rec.Result().Cookies()
		if len(cookies) != 1 || cookies[0].Name != CookieName {
			t.Fatalf("expected session cookie, got %v", cookies)
		}
		if seen == "" || seen != cookies[0].Value {
			t.Errorf("expected context id %q to match cookie %q", seen, cookies[0].Value)
		}
		if !cookies[0].HttpOnly {
			t.Error("expected HttpOnly cookie")
		}
	})

	t.Run("Keeps Existing Session", func(t *testing.T) {
		id := shared.GenerateID()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: id})

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if seen != id {
			t.Errorf("expected %s, got %s", id, seen)
		}
		if len(rec.Result().Cookies()) != 0 {
			t.Error("expected no new cookie")
		}
	})

	t.Run("Replaces Malformed Session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: "not-a-uuid"})

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if seen == "not-a-uuid" {
			t.Error("expected malformed id to be replaced")
		}
		if len(rec.Result().Cookies()) != 1 {
			t.Error("expected a new cookie")
		}
	})
}
