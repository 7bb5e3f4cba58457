package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := Config{Path: filepath.Join(t.TempDir(), "demandgen-test.db")}
	cfg.applyDefaults()
	store, err := OpenWithConfig(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedFirmAndUser(t *testing.T, store *Store) (*Firm, *User) {
	t.Helper()
	ctx := context.Background()
	firm := &Firm{Name: "Harper & Lane LLP"}
	if err := store.CreateFirm(ctx, firm); err != nil {
		t.Fatalf("create firm: %v", err)
	}
	user := &User{FirmID: firm.ID, Email: "jane@harperlane.test", PasswordHash: "x", FirstName: "Jane", LastName: "Harper", Role: "admin", Active: true}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return firm, user
}

func TestOpenMigratesSchema(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.FirmByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserEmailIsNormalised(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	firm, _ := seedFirmAndUser(t, store)

	user := &User{FirmID: firm.ID, Email: "  Sam@Harperlane.Test ", PasswordHash: "x", Active: true}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	got, err := store.UserByEmail(ctx, "SAM@harperlane.test")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.Email != "sam@harperlane.test" {
		t.Fatalf("email not normalised: %q", got.Email)
	}
}

func TestDuplicateEmailRejected(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	firm, user := seedFirmAndUser(t, store)
	dup := &User{FirmID: firm.ID, Email: user.Email, PasswordHash: "x"}
	if err := store.CreateUser(ctx, dup); err == nil {
		t.Fatal("duplicate email should be rejected")
	}
}

func TestTemplateUpdateSnapshotsVersions(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	firm, user := seedFirmAndUser(t, store)

	tpl := &Template{
		FirmID:    firm.ID,
		Name:      "Standard Demand",
		Content:   json.RawMessage(`{"sections":[{"id":"intro","title":"Intro","content":"Hello","order":1}]}`),
		CreatedBy: user.ID,
	}
	if err := store.CreateTemplate(ctx, tpl); err != nil {
		t.Fatalf("create template: %v", err)
	}
	if tpl.Version != 1 {
		t.Fatalf("new template version = %d", tpl.Version)
	}

	tpl.Content = json.RawMessage(`{"sections":[{"id":"intro","title":"Intro","content":"Updated","order":1}]}`)
	if err := store.UpdateTemplate(ctx, tpl, user.ID); err != nil {
		t.Fatalf("update template: %v", err)
	}
	if tpl.Version != 2 {
		t.Fatalf("updated template version = %d", tpl.Version)
	}

	versions, err := store.TemplateVersions(ctx, tpl.ID)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(versions))
	}
	if versions[0].Version != 2 || versions[1].Version != 1 {
		t.Fatalf("snapshots out of order: %+v", versions)
	}
}

func TestTemplateScopedToFirm(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	firm, user := seedFirmAndUser(t, store)
	other := &Firm{Name: "Rival LLP"}
	if err := store.CreateFirm(ctx, other); err != nil {
		t.Fatalf("create firm: %v", err)
	}

	tpl := &Template{FirmID: firm.ID, Name: "Private", Content: json.RawMessage(`{"sections":[]}`), CreatedBy: user.ID}
	if err := store.CreateTemplate(ctx, tpl); err != nil {
		t.Fatalf("create template: %v", err)
	}
	if _, err := store.TemplateByID(ctx, other.ID, tpl.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-firm read should miss, got %v", err)
	}
}

func TestSetDefaultTemplateIsExclusive(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	firm, user := seedFirmAndUser(t, store)

	first := &Template{FirmID: firm.ID, Name: "A", Content: json.RawMessage(`{}`), IsDefault: true, CreatedBy: user.ID}
	second := &Template{FirmID: firm.ID, Name: "B", Content: json.RawMessage(`{}`), CreatedBy: user.ID}
	for _, tpl := range []*Template{first, second} {
		if err := store.CreateTemplate(ctx, tpl); err != nil {
			t.Fatalf("create template: %v", err)
		}
	}
	if err := store.SetDefaultTemplate(ctx, firm.ID, second.ID); err != nil {
		t.Fatalf("set default: %v", err)
	}
	templates, err := store.TemplatesForFirm(ctx, firm.ID)
	if err != nil {
		t.Fatalf("list templates: %v", err)
	}
	for _, tpl := range templates {
		if tpl.ID == second.ID && !tpl.IsDefault {
			t.Fatal("new default not marked")
		}
		if tpl.ID == first.ID && tpl.IsDefault {
			t.Fatal("old default not cleared")
		}
	}
}

func TestLetterContentVersioning(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	firm, user := seedFirmAndUser(t, store)

	letter := &Letter{FirmID: firm.ID, ClientName: "Jane Smith", DefendantName: "Acme Corp", CreatedBy: user.ID}
	if err := store.CreateLetter(ctx, letter); err != nil {
		t.Fatalf("create letter: %v", err)
	}
	if letter.Status != StatusDraft || letter.Version != 1 {
		t.Fatalf("unexpected new letter: %+v", letter)
	}

	updated, err := store.UpdateLetterContent(ctx, firm.ID, letter.ID, "Generated body", "first draft", user.ID)
	if err != nil {
		t.Fatalf("update content: %v", err)
	}
	if updated.Version != 2 {
		t.Fatalf("version = %d", updated.Version)
	}
	versions, err := store.LetterVersions(ctx, letter.ID)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	if len(versions) != 1 || versions[0].Content != "Generated body" || versions[0].Note != "first draft" {
		t.Fatalf("unexpected snapshots: %+v", versions)
	}
}

func TestLetterStatusTransitions(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	firm, user := seedFirmAndUser(t, store)
	letter := &Letter{FirmID: firm.ID, ClientName: "Jane Smith", CreatedBy: user.ID}
	if err := store.CreateLetter(ctx, letter); err != nil {
		t.Fatalf("create letter: %v", err)
	}

	for _, status := range []string{StatusGenerated, StatusInReview, StatusFinalized} {
		if _, err := store.UpdateLetterStatus(ctx, firm.ID, letter.ID, status); err != nil {
			t.Fatalf("advance to %s: %v", status, err)
		}
	}
	// one step back is a legitimate reopen
	if _, err := store.UpdateLetterStatus(ctx, firm.ID, letter.ID, StatusInReview); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	// two steps back is not
	if _, err := store.UpdateLetterStatus(ctx, firm.ID, letter.ID, StatusDraft); err == nil {
		t.Fatal("expected rejection of backward jump")
	}
	if _, err := store.UpdateLetterStatus(ctx, firm.ID, letter.ID, "Shredded"); err == nil {
		t.Fatal("expected rejection of unknown status")
	}
}

func TestLetterStatusFilter(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	firm, user := seedFirmAndUser(t, store)
	for i := 0; i < 3; i++ {
		letter := &Letter{FirmID: firm.ID, ClientName: "Client", CreatedBy: user.ID}
		if err := store.CreateLetter(ctx, letter); err != nil {
			t.Fatalf("create letter: %v", err)
		}
		if i == 0 {
			if _, err := store.UpdateLetterStatus(ctx, firm.ID, letter.ID, StatusGenerated); err != nil {
				t.Fatalf("advance: %v", err)
			}
		}
	}
	drafts, err := store.LettersForFirm(ctx, firm.ID, LetterListOptions{Status: StatusDraft})
	if err != nil {
		t.Fatalf("list drafts: %v", err)
	}
	if len(drafts) != 2 {
		t.Fatalf("expected 2 drafts, got %d", len(drafts))
	}
	all, err := store.LettersForFirm(ctx, firm.ID, LetterListOptions{})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 letters, got %d", len(all))
	}
}

func TestLetterSearchAndPaging(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	firm, user := seedFirmAndUser(t, store)
	for _, name := range []string{"Jane Smith", "John Smith", "Ana Torres"} {
		letter := &Letter{FirmID: firm.ID, ClientName: name, DefendantName: "Acme Corp", CreatedBy: user.ID}
		if err := store.CreateLetter(ctx, letter); err != nil {
			t.Fatalf("create letter: %v", err)
		}
	}
	smiths, err := store.LettersForFirm(ctx, firm.ID, LetterListOptions{Query: "Smith"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(smiths) != 2 {
		t.Fatalf("expected 2 Smith letters, got %d", len(smiths))
	}
	page, err := store.LettersForFirm(ctx, firm.ID, LetterListOptions{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if len(page) != 1 {
		t.Fatalf("expected 1 letter on second page, got %d", len(page))
	}
}

func TestTemplateSoftDeleteKeepsHistory(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	firm, user := seedFirmAndUser(t, store)
	tpl := &Template{FirmID: firm.ID, Name: "Retired", Content: json.RawMessage(`{"sections":[]}`), CreatedBy: user.ID}
	if err := store.CreateTemplate(ctx, tpl); err != nil {
		t.Fatalf("create template: %v", err)
	}
	if err := store.DeleteTemplate(ctx, firm.ID, tpl.ID); err != nil {
		t.Fatalf("delete template: %v", err)
	}
	if _, err := store.TemplateByID(ctx, firm.ID, tpl.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted template still readable: %v", err)
	}
	if err := store.DeleteTemplate(ctx, firm.ID, tpl.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete should miss: %v", err)
	}
	versions, err := store.TemplateVersions(ctx, tpl.ID)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	if len(versions) != 1 {
		t.Fatalf("history lost on soft delete: %d versions", len(versions))
	}
}

func TestSnapshotLetterKeepsContent(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	firm, user := seedFirmAndUser(t, store)
	letter := &Letter{FirmID: firm.ID, ClientName: "Jane Smith", CreatedBy: user.ID}
	if err := store.CreateLetter(ctx, letter); err != nil {
		t.Fatalf("create letter: %v", err)
	}
	if _, err := store.UpdateLetterContent(ctx, firm.ID, letter.ID, "First body", "", user.ID); err != nil {
		t.Fatalf("update content: %v", err)
	}
	version, err := store.SnapshotLetter(ctx, firm.ID, letter.ID, "before edits", user.ID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if version.Content != "First body" || version.Version != 3 {
		t.Fatalf("unexpected snapshot: %+v", version)
	}
	got, err := store.LetterByID(ctx, firm.ID, letter.ID)
	if err != nil {
		t.Fatalf("reload letter: %v", err)
	}
	if got.Content != "First body" {
		t.Fatal("snapshot must not change content")
	}
}

func TestRefreshInvitationRotatesToken(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	firm, user := seedFirmAndUser(t, store)
	inv := &Invitation{FirmID: firm.ID, Email: "new@harperlane.test", InvitedBy: user.ID}
	if err := store.CreateInvitation(ctx, inv); err != nil {
		t.Fatalf("create invitation: %v", err)
	}
	refreshed, err := store.RefreshInvitation(ctx, firm.ID, inv.ID)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.Token == inv.Token {
		t.Fatal("token not rotated")
	}
	if _, err := store.InvitationByToken(ctx, inv.Token); !errors.Is(err, ErrNotFound) {
		t.Fatalf("old token still resolvable: %v", err)
	}
}

func TestDeleteLetterCascades(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	firm, user := seedFirmAndUser(t, store)
	letter := &Letter{FirmID: firm.ID, ClientName: "Jane Smith", CreatedBy: user.ID}
	if err := store.CreateLetter(ctx, letter); err != nil {
		t.Fatalf("create letter: %v", err)
	}
	doc := &SourceDocument{LetterID: letter.ID, FileName: "report.pdf", FilePath: "/tmp/report.pdf", MimeType: "application/pdf", SizeBytes: 42}
	if err := store.AddSourceDocument(ctx, doc); err != nil {
		t.Fatalf("add document: %v", err)
	}
	if err := store.RecordGeneration(ctx, &GenerationRecord{LetterID: letter.ID, Provider: "openai", Model: "gpt-4o", Status: "succeeded"}); err != nil {
		t.Fatalf("record generation: %v", err)
	}

	if err := store.DeleteLetter(ctx, firm.ID, letter.ID); err != nil {
		t.Fatalf("delete letter: %v", err)
	}
	docs, err := store.DocumentsForLetter(ctx, letter.ID)
	if err != nil {
		t.Fatalf("list documents: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("documents not cascaded: %+v", docs)
	}
	records, err := store.GenerationsForLetter(ctx, letter.ID)
	if err != nil {
		t.Fatalf("list generations: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("generation records not cascaded: %+v", records)
	}
}

func TestStatsAggregatesUsage(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	firm, user := seedFirmAndUser(t, store)
	letter := &Letter{FirmID: firm.ID, ClientName: "Jane Smith", CreatedBy: user.ID}
	if err := store.CreateLetter(ctx, letter); err != nil {
		t.Fatalf("create letter: %v", err)
	}
	for _, rec := range []*GenerationRecord{
		{LetterID: letter.ID, Provider: "openai", Model: "gpt-4o", InputTokens: 1000, OutputTokens: 500, CostUSD: 0.0105, Status: "succeeded"},
		{LetterID: letter.ID, Provider: "openai", Model: "gpt-4o", InputTokens: 2000, OutputTokens: 700, CostUSD: 0.0165, Status: "succeeded"},
	} {
		if err := store.RecordGeneration(ctx, rec); err != nil {
			t.Fatalf("record generation: %v", err)
		}
	}

	stats, err := store.Stats(ctx, firm.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalLetters != 1 || stats.TotalUsers != 1 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if stats.TotalInputTokens != 3000 || stats.TotalOutputTokens != 1200 {
		t.Fatalf("unexpected token totals: %+v", stats)
	}
	if stats.TotalCostUSD < 0.026 || stats.TotalCostUSD > 0.028 {
		t.Fatalf("unexpected cost total: %v", stats.TotalCostUSD)
	}
}

func TestInvitationAcceptOnce(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	firm, user := seedFirmAndUser(t, store)
	inv := &Invitation{FirmID: firm.ID, Email: "new@harperlane.test", Role: "paralegal", InvitedBy: user.ID}
	if err := store.CreateInvitation(ctx, inv); err != nil {
		t.Fatalf("create invitation: %v", err)
	}
	got, err := store.InvitationByToken(ctx, inv.Token)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.AcceptedAt != nil {
		t.Fatal("fresh invitation should be unaccepted")
	}
	if err := store.AcceptInvitation(ctx, inv.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := store.AcceptInvitation(ctx, inv.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second accept should fail, got %v", err)
	}
}

func TestSessionStoreConsumeAndRevoke(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	_, user := seedFirmAndUser(t, store)
	sessions := store.Sessions()

	if err := sessions.Save(ctx, "tok-1", user.ID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("save: %v", err)
	}
	live, err := sessions.Consume(ctx, "tok-1")
	if err != nil || !live {
		t.Fatalf("first consume: live=%v err=%v", live, err)
	}
	live, err = sessions.Consume(ctx, "tok-1")
	if err != nil || live {
		t.Fatalf("second consume should miss: live=%v err=%v", live, err)
	}

	if err := sessions.Save(ctx, "tok-expired", user.ID, time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if live, _ := sessions.Consume(ctx, "tok-expired"); live {
		t.Fatal("expired session should not be live")
	}

	if err := sessions.Save(ctx, "tok-2", user.ID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := sessions.RevokeUser(ctx, user.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if live, _ := sessions.Consume(ctx, "tok-2"); live {
		t.Fatal("revoked session still live")
	}
}

func TestSessionConsumeSingleWinner(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	_, user := seedFirmAndUser(t, store)
	sessions := store.Sessions()

	for i := 0; i < 50; i++ {
		token := fmt.Sprintf("race-tok-%d", i)
		if err := sessions.Save(ctx, token, user.ID, time.Now().Add(time.Hour)); err != nil {
			t.Fatalf("save: %v", err)
		}
		var wins atomic.Int32
		var wg sync.WaitGroup
		for g := 0; g < 2; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				live, err := sessions.Consume(ctx, token)
				if err != nil {
					t.Errorf("consume: %v", err)
					return
				}
				if live {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		if got := wins.Load(); got != 1 {
			t.Fatalf("iteration %d: %d consumers won, want exactly 1", i, got)
		}
	}
}
