package services

import (
	"errors"
	"testing"

	"github.com/consultbridge/backend/internal/dto"
	"github.com/consultbridge/backend/internal/models"
)

func TestConversationOwnershipAndStaffAccess(t *testing.T) {
	db := newTestDB(t)
	svc := NewSupportService(db)
	owner := createTestUser(t, db, "owner@example.com", models.RoleClient)
	other := createTestUser(t, db, "other@example.com", models.RoleClient)
	staff := createTestUser(t, db, "staff@example.com", models.RoleClient)

	conv, err := svc.CreateConversation(owner.ID, &dto.CreateConversationRequest{
		Subject: "Billing question",
		Message: "My invoice looks wrong.",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if len(conv.Messages) != 1 || conv.Messages[0].Sender != models.SenderUser {
		t.Fatalf("opening message missing or wrong sender: %+v", conv.Messages)
	}

	if _, err := svc.GetConversation(other.ID, false, conv.ID); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("other accounts must not see the conversation, got %v", err)
	}
	if _, err := svc.GetConversation(staff.ID, true, conv.ID); err != nil {
		t.Fatalf("staff should see every conversation: %v", err)
	}
}

func TestStaffRepliesRecordedAsSupport(t *testing.T) {
	db := newTestDB(t)
	svc := NewSupportService(db)
	owner := createTestUser(t, db, "owner@example.com", models.RoleClient)
	staff := createTestUser(t, db, "staff@example.com", models.RoleClient)

	conv, err := svc.CreateConversation(owner.ID, &dto.CreateConversationRequest{
		Subject: "Help", Message: "Hello?",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	reply, err := svc.AddMessage(staff.ID, true, conv.ID, &dto.AddMessageRequest{Body: "On it."})
	if err != nil {
		t.Fatalf("staff reply failed: %v", err)
	}
	if reply.Sender != models.SenderSupport {
		t.Fatalf("staff reply should be SUPPORT, got %s", reply.Sender)
	}

	own, err := svc.AddMessage(owner.ID, false, conv.ID, &dto.AddMessageRequest{Body: "Thanks!"})
	if err != nil {
		t.Fatalf("owner reply failed: %v", err)
	}
	if own.Sender != models.SenderUser {
		t.Fatalf("owner reply should be USER, got %s", own.Sender)
	}
}

func TestResolveAndReopenAddSystemMessages(t *testing.T) {
	db := newTestDB(t)
	svc := NewSupportService(db)
	owner := createTestUser(t, db, "owner@example.com", models.RoleClient)

	conv, err := svc.CreateConversation(owner.ID, &dto.CreateConversationRequest{
		Subject: "Bug", Message: "Something broke.",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	resolved, err := svc.Resolve(owner.ID, false, conv.ID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.Status != models.ConversationResolved {
		t.Fatalf("expected resolved, got %s", resolved.Status)
	}

	reopened, err := svc.Reopen(owner.ID, false, conv.ID)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if reopened.Status != models.ConversationOpen {
		t.Fatalf("expected open, got %s", reopened.Status)
	}

	system := 0
	for _, m := range reopened.Messages {
		if m.Sender == models.SenderSystem {
			system++
		}
	}
	if system != 2 {
		t.Fatalf("expected 2 system messages, got %d", system)
	}
}

func TestArticleSearchAndVisibility(t *testing.T) {
	db := newTestDB(t)
	svc := NewSupportService(db)

	published, err := svc.CreateArticle(&dto.CreateArticleRequest{
		Title: "Resetting your password", Category: "Account",
		Content: "Use the forgot password link.", IsPublished: true,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.CreateArticle(&dto.CreateArticleRequest{
		Title: "Internal draft", Category: "Account",
		Content: "Not ready yet.", IsPublished: false,
	}); err != nil {
		t.Fatalf("draft create failed: %v", err)
	}

	all, err := svc.ListArticles("", "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("drafts must be hidden, got %d articles", len(all))
	}

	// Case-insensitive search across title and content.
	hits, err := svc.ListArticles("PASSWORD", "")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != published.ID {
		t.Fatalf("search missed the published article: %+v", hits)
	}

	if _, err := svc.GetArticle(published.Slug); err != nil {
		t.Fatalf("get by slug failed: %v", err)
	}
	if _, err := svc.GetArticle("internal-draft"); !errors.Is(err, ErrArticleNotFound) {
		t.Fatalf("drafts must not resolve by slug, got %v", err)
	}
}

func TestArticleDuplicateTitle(t *testing.T) {
	db := newTestDB(t)
	svc := NewSupportService(db)

	req := &dto.CreateArticleRequest{Title: "Same Title", Content: "a", IsPublished: true}
	if _, err := svc.CreateArticle(req); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.CreateArticle(req); !errors.Is(err, ErrSlugTaken) {
		t.Fatalf("expected ErrSlugTaken, got %v", err)
	}
}

func TestCategoryCounts(t *testing.T) {
	db := newTestDB(t)
	svc := NewSupportService(db)

	for _, a := range []dto.CreateArticleRequest{
		{Title: "A", Category: "Billing", Content: "x", IsPublished: true},
		{Title: "B", Category: "Billing", Content: "x", IsPublished: true},
		{Title: "C", Category: "Meetings", Content: "x", IsPublished: true},
		{Title: "D", Category: "Billing", Content: "x", IsPublished: false},
	} {
		req := a
		if _, err := svc.CreateArticle(&req); err != nil {
			t.Fatalf("create %s failed: %v", a.Title, err)
		}
	}

	counts, err := svc.CategoryCounts()
	if err != nil {
		t.Fatalf("counts failed: %v", err)
	}
	if len(counts) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(counts))
	}
	if counts[0].Category != "Billing" || counts[0].Count != 2 {
		t.Fatalf("draft articles must not count: %+v", counts[0])
	}
}
