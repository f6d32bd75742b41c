// Package api holds the kopa.v1 wire messages. They travel as JSON with
// lowerCamelCase field names. Amounts are decimal strings and dates are
// YYYY-MM-DD strings.
package api

type Group struct {
	Id                 string `json:"id"`
	Name               string `json:"name"`
	Description        string `json:"description,omitempty"`
	ContributionAmount string `json:"contributionAmount"`
	Frequency          string `json:"frequency"`
	StartDate          string `json:"startDate"`
	AdminId            string `json:"adminId"`
	IsActive           bool   `json:"isActive"`
	CreatedAt          int64  `json:"createdAt"`
	UpdatedAt          int64  `json:"updatedAt"`
}

type Member struct {
	Id       string `json:"id"`
	GroupId  string `json:"groupId"`
	UserId   string `json:"userId,omitempty"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email,omitempty"`
	IsAdmin  bool   `json:"isAdmin"`
	Position int32  `json:"position"`
	JoinedAt int64  `json:"joinedAt"`
}

// MemberInput describes a member to add. UserId links the row to an
// identity-provider account and may be empty.
type MemberInput struct {
	UserId string `json:"userId,omitempty"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Email  string `json:"email,omitempty"`
}

// MemberStatus is a member with its payment state in the open cycle:
// "paid", "pending" or "next".
type MemberStatus struct {
	Member *Member `json:"member"`
	Status string  `json:"status"`
	Paid   bool    `json:"paid"`
}

type Cycle struct {
	Id                string `json:"id"`
	GroupId           string `json:"groupId"`
	Rotation          int32  `json:"rotation"`
	Number            int32  `json:"number"`
	StartDate         string `json:"startDate"`
	EndDate           string `json:"endDate"`
	PayoutRecipientId string `json:"payoutRecipientId"`
	ContributorCount  int32  `json:"contributorCount"`
	IsCompleted       bool   `json:"isCompleted"`
	CompletedAt       int64  `json:"completedAt,omitempty"`
}

type Transaction struct {
	Id       string `json:"id"`
	GroupId  string `json:"groupId"`
	CycleId  string `json:"cycleId"`
	MemberId string `json:"memberId"`
	Amount   string `json:"amount"`
	Type     string `json:"type"`
	Status   string `json:"status"`

	// PaymentDate is RFC 3339, empty until completed.
	PaymentDate string `json:"paymentDate,omitempty"`

	Note      string `json:"note,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

type Collection struct {
	CycleId             string   `json:"cycleId"`
	Expected            string   `json:"expected"`
	Collected           string   `json:"collected"`
	Pending             string   `json:"pending"`
	Complete            bool     `json:"complete"`
	PaidMemberIds       []string `json:"paidMemberIds"`
	PendingMemberIds    []string `json:"pendingMemberIds"`
	PayoutTransactionId string   `json:"payoutTransactionId,omitempty"`
}

// GroupSummary is a row of the caller's group list.
type GroupSummary struct {
	Group           *Group `json:"group"`
	MyRole          string `json:"myRole"`
	MyMemberId      string `json:"myMemberId"`
	MemberCount     int32  `json:"memberCount"`
	CurrentRound    int32  `json:"currentRound"`
	TotalRounds     int32  `json:"totalRounds"`
	NextPaymentDate string `json:"nextPaymentDate"`
}

type Permissions struct {
	CanCreateGroups  bool `json:"canCreateGroups"`
	CanManageMembers bool `json:"canManageMembers"`
	CanManageLedger  bool `json:"canManageLedger"`
	CanViewAllGroups bool `json:"canViewAllGroups"`
	CanDeleteGroups  bool `json:"canDeleteGroups"`
	CanSendReminders bool `json:"canSendReminders"`
	CanViewAnalytics bool `json:"canViewAnalytics"`
}

type RoleResolution struct {
	Role        string       `json:"role"`
	Permissions *Permissions `json:"permissions"`
}

// GroupService

type CreateGroupRequest struct {
	Name               string `json:"name"`
	Description        string `json:"description,omitempty"`
	ContributionAmount string `json:"contributionAmount"`
	Frequency          string `json:"frequency"`
	StartDate          string `json:"startDate"`

	// Admin is the caller's own member row; its UserId is taken from the token.
	Admin   *MemberInput   `json:"admin"`
	Members []*MemberInput `json:"members,omitempty"`
}

type CreateGroupResponse struct {
	Group   *Group    `json:"group"`
	Members []*Member `json:"members"`
}

type GetGroupRequest struct {
	GroupId string `json:"groupId"`
}

type GetGroupResponse struct {
	Group        *Group    `json:"group"`
	Members      []*Member `json:"members"`
	CurrentCycle *Cycle    `json:"currentCycle,omitempty"`
}

type ListMyGroupsRequest struct{}

type ListMyGroupsResponse struct {
	Groups []*GroupSummary `json:"groups"`
}

type ListMembersRequest struct {
	GroupId string `json:"groupId"`
}

type ListMembersResponse struct {
	Members []*MemberStatus `json:"members"`
}

type AddMemberRequest struct {
	GroupId string       `json:"groupId"`
	Member  *MemberInput `json:"member"`
}

type AddMemberResponse struct {
	Member *Member `json:"member"`
}

type RemoveMemberRequest struct {
	GroupId  string `json:"groupId"`
	MemberId string `json:"memberId"`
}

type RemoveMemberResponse struct {
	Member *Member `json:"member"`
}

type SetAdminRequest struct {
	GroupId  string `json:"groupId"`
	MemberId string `json:"memberId"`
	IsAdmin  bool   `json:"isAdmin"`
}

type SetAdminResponse struct {
	Member *Member `json:"member"`
}

type DeactivateGroupRequest struct {
	GroupId string `json:"groupId"`
}

type DeactivateGroupResponse struct {
	Group *Group `json:"group"`
}

// CycleService

type StartCycleRequest struct {
	GroupId string `json:"groupId"`
}

type StartCycleResponse struct {
	Cycle *Cycle `json:"cycle"`
}

type CompleteCycleRequest struct {
	CycleId string `json:"cycleId"`
}

type CompleteCycleResponse struct {
	Cycle *Cycle `json:"cycle"`
}

type GetCurrentCycleRequest struct {
	GroupId string `json:"groupId"`
}

type GetCurrentCycleResponse struct {
	Cycle      *Cycle      `json:"cycle"`
	Collection *Collection `json:"collection"`
}

type ListCyclesRequest struct {
	GroupId string `json:"groupId"`
}

type ListCyclesResponse struct {
	Cycles []*Cycle `json:"cycles"`
}

// LedgerService

type RecordContributionRequest struct {
	CycleId  string `json:"cycleId"`
	MemberId string `json:"memberId"`
	Amount   string `json:"amount"`
}

type RecordContributionResponse struct {
	Transaction *Transaction `json:"transaction"`
}

type MarkPaidRequest struct {
	TransactionId string `json:"transactionId"`
}

type MarkPaidResponse struct {
	Transaction *Transaction `json:"transaction"`
}

type MarkFailedRequest struct {
	TransactionId string `json:"transactionId"`
	Note          string `json:"note,omitempty"`
}

type MarkFailedResponse struct {
	Transaction *Transaction `json:"transaction"`
}

type MarkMemberPaidRequest struct {
	CycleId  string `json:"cycleId"`
	MemberId string `json:"memberId"`
}

type MarkMemberPaidResponse struct {
	Transaction *Transaction `json:"transaction"`
}

type RecordPayoutRequest struct {
	CycleId string `json:"cycleId"`
}

type RecordPayoutResponse struct {
	Transaction *Transaction `json:"transaction"`
}

type GetCollectionRequest struct {
	CycleId string `json:"cycleId"`
}

type GetCollectionResponse struct {
	Collection *Collection `json:"collection"`
}

// ListTransactionsRequest filters a group's history. MemberId and Type
// ("contribution" or "payout") are optional.
type ListTransactionsRequest struct {
	GroupId  string `json:"groupId"`
	MemberId string `json:"memberId,omitempty"`
	Type     string `json:"type,omitempty"`
}

type ListTransactionsResponse struct {
	Transactions []*Transaction `json:"transactions"`
}

// RoleService

// ResolveMyRoleRequest optionally scopes the resolution to one group.
type ResolveMyRoleRequest struct {
	GroupId string `json:"groupId,omitempty"`
}

type ResolveMyRoleResponse struct {
	// Global is admin when the caller administers any group.
	Global *RoleResolution `json:"global"`

	// Group is set when GroupId was given.
	Group *RoleResolution `json:"group,omitempty"`
}
