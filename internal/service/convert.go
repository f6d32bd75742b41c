package service

import (
	"time"

	"github.com/mmynk/kopa/internal/ledger"
	"github.com/mmynk/kopa/internal/models"
	"github.com/mmynk/kopa/internal/registry"
	"github.com/mmynk/kopa/internal/roles"
	"github.com/mmynk/kopa/internal/rotation"
	"github.com/mmynk/kopa/internal/schedule"
	pb "github.com/mmynk/kopa/pkg/api"
)

func toGroup(g *models.Group) *pb.Group {
	return &pb.Group{
		Id:                 g.ID,
		Name:               g.Name,
		Description:        g.Description,
		ContributionAmount: g.ContributionAmount.String(),
		Frequency:          string(g.Frequency),
		StartDate:          schedule.FormatDate(g.StartDate),
		AdminId:            g.AdminID,
		IsActive:           g.IsActive,
		CreatedAt:          g.CreatedAt,
		UpdatedAt:          g.UpdatedAt,
	}
}

func toMember(m *models.Member) *pb.Member {
	return &pb.Member{
		Id:       m.ID,
		GroupId:  m.GroupID,
		UserId:   m.UserID,
		Name:     m.Name,
		Phone:    m.Phone,
		Email:    m.Email,
		IsAdmin:  m.IsAdmin,
		Position: int32(m.Position),
		JoinedAt: m.JoinedAt,
	}
}

func toMembers(ms []*models.Member) []*pb.Member {
	out := make([]*pb.Member, len(ms))
	for i, m := range ms {
		out[i] = toMember(m)
	}
	return out
}

func toMemberStatus(st rotation.MemberStatus) *pb.MemberStatus {
	return &pb.MemberStatus{
		Member: toMember(st.Member),
		Status: string(st.State),
		Paid:   st.Paid,
	}
}

func toCycle(c *models.Cycle) *pb.Cycle {
	return &pb.Cycle{
		Id:                c.ID,
		GroupId:           c.GroupID,
		Rotation:          int32(c.Rotation),
		Number:            int32(c.Number),
		StartDate:         schedule.FormatDate(c.StartDate),
		EndDate:           schedule.FormatDate(c.EndDate),
		PayoutRecipientId: c.PayoutRecipientID,
		ContributorCount:  int32(c.ContributorCount),
		IsCompleted:       c.IsCompleted,
		CompletedAt:       c.CompletedAt,
	}
}

func toTransaction(t *models.Transaction) *pb.Transaction {
	out := &pb.Transaction{
		Id:        t.ID,
		GroupId:   t.GroupID,
		CycleId:   t.CycleID,
		MemberId:  t.MemberID,
		Amount:    t.Amount.String(),
		Type:      string(t.Type),
		Status:    string(t.Status),
		Note:      t.Note,
		CreatedAt: t.CreatedAt,
	}
	if t.PaymentDate != nil {
		out.PaymentDate = t.PaymentDate.UTC().Format(time.RFC3339)
	}
	return out
}

func toTransactions(ts []*models.Transaction) []*pb.Transaction {
	out := make([]*pb.Transaction, len(ts))
	for i, t := range ts {
		out[i] = toTransaction(t)
	}
	return out
}

func toCollection(c ledger.Collection) *pb.Collection {
	out := &pb.Collection{
		CycleId:          c.CycleID,
		Expected:         c.Expected.String(),
		Collected:        c.Collected.String(),
		Pending:          c.Pending.String(),
		Complete:         c.Complete(),
		PaidMemberIds:    nonNil(c.PaidMemberIDs),
		PendingMemberIds: nonNil(c.PendingMemberIDs),
	}
	if c.Payout != nil {
		out.PayoutTransactionId = c.Payout.ID
	}
	return out
}

func toRoleResolution(r roles.Resolution) *pb.RoleResolution {
	p := r.Permissions
	return &pb.RoleResolution{
		Role: string(r.Role),
		Permissions: &pb.Permissions{
			CanCreateGroups:  p.CanCreateGroups,
			CanManageMembers: p.CanManageMembers,
			CanManageLedger:  p.CanManageLedger,
			CanViewAllGroups: p.CanViewAllGroups,
			CanDeleteGroups:  p.CanDeleteGroups,
			CanSendReminders: p.CanSendReminders,
			CanViewAnalytics: p.CanViewAnalytics,
		},
	}
}

func fromMemberInput(in *pb.MemberInput) registry.MemberInput {
	if in == nil {
		return registry.MemberInput{}
	}
	return registry.MemberInput{
		UserID: in.UserId,
		Name:   in.Name,
		Phone:  in.Phone,
		Email:  in.Email,
	}
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
