package registry

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/kopa/internal/errs"
	"github.com/mmynk/kopa/internal/lock"
	"github.com/mmynk/kopa/internal/models"
	"github.com/mmynk/kopa/internal/storage/sqlite"
)

func newTestRegistry(t *testing.T) (*Registry, *sqlite.SQLiteStore) {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return New(store, lock.NewKeyed()), store
}

func validInput() CreateGroupInput {
	return CreateGroupInput{
		Name:               "Family Savings",
		ContributionAmount: decimal.NewFromInt(50000),
		Frequency:          models.FrequencyMonthly,
		StartDate:          time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		Admin:              MemberInput{UserID: "user-ada", Name: "Ada", Phone: "+2348000000001"},
		Members: []MemberInput{
			{Name: "Bola", Phone: "+2348000000002"},
			{Name: "Chidi", Phone: "+2348000000003", Email: "chidi@example.com"},
		},
	}
}

func TestCreateGroup(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	group, members, err := r.CreateGroup(ctx, validInput())
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	if len(members) != 3 {
		t.Fatalf("Expected 3 members, got %d", len(members))
	}
	if group.AdminID != members[0].ID {
		t.Errorf("Expected admin_id %s, got %s", members[0].ID, group.AdminID)
	}
	if !members[0].IsAdmin || members[1].IsAdmin || members[2].IsAdmin {
		t.Errorf("Expected only the first member to be admin")
	}
	for i, m := range members {
		if m.Position != i+1 {
			t.Errorf("Member %s: expected position %d, got %d", m.Name, i+1, m.Position)
		}
		if m.GroupID != group.ID {
			t.Errorf("Member %s: expected group %s, got %s", m.Name, group.ID, m.GroupID)
		}
	}

	listed, err := r.ListMembers(ctx, group.ID)
	if err != nil {
		t.Fatalf("ListMembers failed: %v", err)
	}
	if len(listed) != 3 || listed[0].Name != "Ada" {
		t.Errorf("Expected Ada first of 3 members, got %d members", len(listed))
	}

	mine, err := r.Memberships(ctx, "user-ada")
	if err != nil {
		t.Fatalf("Memberships failed: %v", err)
	}
	if len(mine) != 1 || mine[0].GroupID != group.ID {
		t.Errorf("Expected one membership in %s, got %+v", group.ID, mine)
	}
}

func TestCreateGroupValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *CreateGroupInput)
	}{
		{"empty name", func(in *CreateGroupInput) { in.Name = "  " }},
		{"zero amount", func(in *CreateGroupInput) { in.ContributionAmount = decimal.Zero }},
		{"negative amount", func(in *CreateGroupInput) { in.ContributionAmount = decimal.NewFromInt(-5) }},
		{"unknown frequency", func(in *CreateGroupInput) { in.Frequency = "daily" }},
		{"missing start date", func(in *CreateGroupInput) { in.StartDate = time.Time{} }},
		{"admin without phone", func(in *CreateGroupInput) { in.Admin.Phone = "" }},
		{"member without name", func(in *CreateGroupInput) { in.Members[0].Name = "" }},
		{"bad email", func(in *CreateGroupInput) { in.Members[1].Email = "not-an-email" }},
		{"duplicate phone", func(in *CreateGroupInput) { in.Members[1].Phone = "+234 800 000 0002" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRegistry(t)
			in := validInput()
			tt.mutate(&in)

			_, _, err := r.CreateGroup(context.Background(), in)
			if errs.KindOf(err) != errs.KindValidation {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}
}

func TestAddMember(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	group, _, err := r.CreateGroup(ctx, validInput())
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	m, err := r.AddMember(ctx, group.ID, MemberInput{Name: "Dayo", Phone: "+2348000000004"})
	if err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	if m.Position != 4 {
		t.Errorf("Expected position 4, got %d", m.Position)
	}

	_, err = r.AddMember(ctx, group.ID, MemberInput{Name: "Bola again", Phone: "+2348000000002"})
	if errs.KindOf(err) != errs.KindValidation {
		t.Errorf("Expected validation error for duplicate phone, got %v", err)
	}

	_, err = r.AddMember(ctx, "missing", MemberInput{Name: "Eze", Phone: "+2348000000005"})
	if errs.KindOf(err) != errs.KindNotFound {
		t.Errorf("Expected not found, got %v", err)
	}

	if err := r.DeactivateGroup(ctx, group.ID); err != nil {
		t.Fatalf("DeactivateGroup failed: %v", err)
	}
	_, err = r.AddMember(ctx, group.ID, MemberInput{Name: "Eze", Phone: "+2348000000005"})
	if !errors.Is(err, errs.ErrGroupInactive) {
		t.Errorf("Expected ErrGroupInactive, got %v", err)
	}
}

func TestRemoveMember(t *testing.T) {
	ctx := context.Background()

	t.Run("last admin", func(t *testing.T) {
		r, _ := newTestRegistry(t)
		group, members, err := r.CreateGroup(ctx, validInput())
		if err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}

		_, err = r.RemoveMember(ctx, group.ID, members[0].ID)
		if !errors.Is(err, errs.ErrLastAdmin) {
			t.Fatalf("Expected ErrLastAdmin, got %v", err)
		}
		if errs.KindOf(err) != errs.KindInvariantViolation {
			t.Errorf("Expected invariant violation, got %s", errs.KindOf(err))
		}
	})

	t.Run("one of two admins", func(t *testing.T) {
		r, _ := newTestRegistry(t)
		group, members, err := r.CreateGroup(ctx, validInput())
		if err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		if _, err := r.SetAdmin(ctx, group.ID, members[1].ID, true); err != nil {
			t.Fatalf("SetAdmin failed: %v", err)
		}

		removed, err := r.RemoveMember(ctx, group.ID, members[0].ID)
		if err != nil {
			t.Fatalf("RemoveMember failed: %v", err)
		}
		if removed.Active() {
			t.Errorf("Expected member to be removed")
		}

		listed, err := r.ListMembers(ctx, group.ID)
		if err != nil {
			t.Fatalf("ListMembers failed: %v", err)
		}
		if len(listed) != 2 {
			t.Errorf("Expected 2 active members, got %d", len(listed))
		}

		// The remaining admin is now the last one.
		_, err = r.RemoveMember(ctx, group.ID, members[1].ID)
		if !errors.Is(err, errs.ErrLastAdmin) {
			t.Errorf("Expected ErrLastAdmin, got %v", err)
		}
	})

	t.Run("regular member", func(t *testing.T) {
		r, _ := newTestRegistry(t)
		group, members, err := r.CreateGroup(ctx, validInput())
		if err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		if _, err := r.RemoveMember(ctx, group.ID, members[2].ID); err != nil {
			t.Fatalf("RemoveMember failed: %v", err)
		}

		_, err = r.RemoveMember(ctx, group.ID, members[2].ID)
		if errs.KindOf(err) != errs.KindNotFound {
			t.Errorf("Expected not found for removed member, got %v", err)
		}

		// The phone of a removed member can be reused.
		if _, err := r.AddMember(ctx, group.ID, MemberInput{Name: "Chidi", Phone: members[2].Phone}); err != nil {
			t.Errorf("AddMember with reused phone failed: %v", err)
		}
	})

	t.Run("open cycle", func(t *testing.T) {
		r, store := newTestRegistry(t)
		group, members, err := r.CreateGroup(ctx, validInput())
		if err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}

		rot := &models.Rotation{GroupID: group.ID, Number: 1, MemberIDs: []string{members[0].ID, members[1].ID, members[2].ID}}
		if err := store.CreateRotation(ctx, rot); err != nil {
			t.Fatalf("CreateRotation failed: %v", err)
		}
		cycle := &models.Cycle{
			GroupID:           group.ID,
			Rotation:          1,
			Number:            1,
			StartDate:         group.StartDate,
			EndDate:           group.StartDate.AddDate(0, 1, 0),
			PayoutRecipientID: members[0].ID,
			ContributorCount:  3,
		}
		if err := store.CreateCycle(ctx, cycle); err != nil {
			t.Fatalf("CreateCycle failed: %v", err)
		}

		_, err = r.RemoveMember(ctx, group.ID, members[2].ID)
		if !errors.Is(err, errs.ErrCycleInProgress) {
			t.Errorf("Expected ErrCycleInProgress, got %v", err)
		}
		err = r.DeactivateGroup(ctx, group.ID)
		if !errors.Is(err, errs.ErrCycleInProgress) {
			t.Errorf("Expected ErrCycleInProgress on deactivate, got %v", err)
		}
	})
}

func TestSetAdmin(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	group, members, err := r.CreateGroup(ctx, validInput())
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	_, err = r.SetAdmin(ctx, group.ID, members[0].ID, false)
	if !errors.Is(err, errs.ErrLastAdmin) {
		t.Fatalf("Expected ErrLastAdmin, got %v", err)
	}

	m, err := r.SetAdmin(ctx, group.ID, members[2].ID, true)
	if err != nil {
		t.Fatalf("SetAdmin failed: %v", err)
	}
	if !m.IsAdmin {
		t.Errorf("Expected member to be admin")
	}

	if _, err := r.SetAdmin(ctx, group.ID, members[0].ID, false); err != nil {
		t.Errorf("Demoting one of two admins failed: %v", err)
	}

	// Setting the current value is a no-op.
	if _, err := r.SetAdmin(ctx, group.ID, members[2].ID, true); err != nil {
		t.Errorf("SetAdmin no-op failed: %v", err)
	}
}
