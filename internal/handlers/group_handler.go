package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "tontin/internal/errors"
	"tontin/internal/pagination"
	"tontin/internal/services"
)

// GroupHandler handles group, membership and invitation requests.
type GroupHandler struct {
	groupService       services.GroupServicer
	transactionService services.TransactionServicer
	auditService       services.AuditServicer
}

// NewGroupHandler creates a new GroupHandler.
func NewGroupHandler(groupService services.GroupServicer, transactionService services.TransactionServicer, auditService services.AuditServicer) *GroupHandler {
	return &GroupHandler{
		groupService:       groupService,
		transactionService: transactionService,
		auditService:       auditService,
	}
}

// CreateGroupRequest represents the request payload for creating a group.
type CreateGroupRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Description string `json:"description" binding:"max=500"`
	Currency    string `json:"currency" binding:"omitempty,iso4217"`
	Image       string `json:"image" binding:"max=500"`
}

// UpdateGroupRequest represents the request payload for updating a group.
type UpdateGroupRequest struct {
	Name        string `json:"name" binding:"omitempty,min=1,max=100"`
	Description string `json:"description" binding:"max=500"`
	Image       string `json:"image" binding:"max=500"`
}

// InviteRequest represents the request payload for inviting a member.
type InviteRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// AcceptInvitationRequest represents the request payload for accepting an invitation.
type AcceptInvitationRequest struct {
	Token string `json:"token" binding:"required"`
}

// CreateGroup handles the creation of a new group
// @Summary     Create a group
// @Description Create a group; the creator becomes owner and admin member
// @Tags        groups
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateGroupRequest true "Group details"
// @Success     201 {object} models.Group "Group created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /groups [post]
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	group, err := h.groupService.CreateGroup(userID, req.Name, req.Description, req.Currency, req.Image)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_GROUP", "group", group.ID, c.ClientIP(),
		map[string]interface{}{"name": req.Name})

	c.JSON(http.StatusCreated, gin.H{"group": group})
}

// GetGroups handles listing the user's groups
// @Summary     Get groups
// @Description Get the active groups the user belongs to
// @Tags        groups
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Group] "Paginated groups"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /groups [get]
func (h *GroupHandler) GetGroups(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.groupService.GetUserGroups(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetGroupByID handles the retrieval of one group
// @Summary     Get group by ID
// @Description Get a group the user is an active member of
// @Tags        groups
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Group ID"
// @Success     200 {object} models.Group "Group"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Group not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /groups/{id} [get]
func (h *GroupHandler) GetGroupByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	groupID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	group, err := h.groupService.GetGroupByID(userID, groupID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"group": group})
}

// UpdateGroup handles updating group metadata
// @Summary     Update a group
// @Description Update a group's name, description or image. Admin only.
// @Tags        groups
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int                true "Group ID"
// @Param       request body UpdateGroupRequest true "Group fields"
// @Success     200 {object} models.Group "Updated group"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a group admin"
// @Failure     404 {object} ErrorResponse "Group not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /groups/{id} [put]
func (h *GroupHandler) UpdateGroup(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	groupID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	group, err := h.groupService.UpdateGroup(userID, groupID, req.Name, req.Description, req.Image)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_GROUP", "group", groupID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"group": group})
}

// DeactivateGroup handles disabling a group
// @Summary     Deactivate a group
// @Description Deactivate a group. Owner only, and only when no other member is active.
// @Tags        groups
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Group ID"
// @Success     200 {object} map[string]string "Group deactivated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not the group owner"
// @Failure     404 {object} ErrorResponse "Group not found"
// @Failure     409 {object} ErrorResponse "Group still has active members"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /groups/{id} [delete]
func (h *GroupHandler) DeactivateGroup(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	groupID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.groupService.DeactivateGroup(userID, groupID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DEACTIVATE_GROUP", "group", groupID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "group deactivated"})
}

// GetMembers handles listing a group's members
// @Summary     Get group members
// @Description Get a group's membership roster
// @Tags        groups
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Group ID"
// @Success     200 {array} models.GroupMember "Members"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a group member"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /groups/{id}/members [get]
func (h *GroupHandler) GetMembers(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	groupID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	members, err := h.groupService.GetMembers(userID, groupID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": members})
}

// PromoteMember handles granting the admin role
// @Summary     Promote member
// @Description Grant the admin role to an active member. Admin only.
// @Tags        groups
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id     path int true "Group ID"
// @Param       userId path int true "Member user ID"
// @Success     200 {object} models.GroupMember "Updated member"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a group admin"
// @Failure     404 {object} ErrorResponse "Member not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /groups/{id}/members/{userId}/promote [put]
func (h *GroupHandler) PromoteMember(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	groupID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	memberUserID, err := parsePathID(c, "userId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	member, err := h.groupService.PromoteMember(userID, groupID, memberUserID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "PROMOTE_MEMBER", "group", groupID, c.ClientIP(),
		map[string]interface{}{"member_user_id": memberUserID})

	c.JSON(http.StatusOK, gin.H{"member": member})
}

// DemoteMember handles revoking the admin role
// @Summary     Demote member
// @Description Revoke the admin role. Refused for the last remaining admin.
// @Tags        groups
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id     path int true "Group ID"
// @Param       userId path int true "Member user ID"
// @Success     200 {object} models.GroupMember "Updated member"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a group admin"
// @Failure     404 {object} ErrorResponse "Member not found"
// @Failure     409 {object} ErrorResponse "Would leave the group without an admin"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /groups/{id}/members/{userId}/demote [put]
func (h *GroupHandler) DemoteMember(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	groupID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	memberUserID, err := parsePathID(c, "userId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	member, err := h.groupService.DemoteMember(userID, groupID, memberUserID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DEMOTE_MEMBER", "group", groupID, c.ClientIP(),
		map[string]interface{}{"member_user_id": memberUserID})

	c.JSON(http.StatusOK, gin.H{"member": member})
}

// RemoveMember handles removing a member from a group
// @Summary     Remove member
// @Description Remove an active member. Admin only; the owner cannot be removed.
// @Tags        groups
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id     path int true "Group ID"
// @Param       userId path int true "Member user ID"
// @Success     200 {object} map[string]string "Member removed"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a group admin or owner removal"
// @Failure     404 {object} ErrorResponse "Member not found"
// @Failure     409 {object} ErrorResponse "Would leave the group without an admin"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /groups/{id}/members/{userId} [delete]
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	groupID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	memberUserID, err := parsePathID(c, "userId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.groupService.RemoveMember(userID, groupID, memberUserID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "REMOVE_MEMBER", "group", groupID, c.ClientIP(),
		map[string]interface{}{"member_user_id": memberUserID})

	c.JSON(http.StatusOK, gin.H{"message": "member removed"})
}

// LeaveGroup handles a member leaving a group
// @Summary     Leave group
// @Description Leave a group. The owner and the last admin cannot leave.
// @Tags        groups
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Group ID"
// @Success     200 {object} map[string]string "Left the group"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Owner cannot leave"
// @Failure     404 {object} ErrorResponse "Member not found"
// @Failure     409 {object} ErrorResponse "Would leave the group without an admin"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /groups/{id}/leave [post]
func (h *GroupHandler) LeaveGroup(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	groupID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.groupService.LeaveGroup(userID, groupID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "LEAVE_GROUP", "group", groupID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "left the group"})
}

// InviteToGroup handles creating an invitation
// @Summary     Invite to group
// @Description Create an invitation for an email address. Admin only.
// @Tags        groups
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int           true "Group ID"
// @Param       request body InviteRequest true "Invitee email"
// @Success     201 {object} models.GroupInvitation "Invitation created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a group admin"
// @Failure     409 {object} ErrorResponse "Already a member"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /groups/{id}/invitations [post]
func (h *GroupHandler) InviteToGroup(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	groupID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	invitation, err := h.groupService.InviteToGroup(userID, groupID, req.Email)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "INVITE_MEMBER", "group", groupID, c.ClientIP(),
		map[string]interface{}{"email": req.Email})

	// The token is returned for out-of-band delivery.
	c.JSON(http.StatusCreated, gin.H{
		"invitation": invitation,
		"token":      invitation.Token,
	})
}

// GetInvitation handles previewing an invitation by token
// @Summary     Get invitation
// @Description Preview an invitation before accepting it
// @Tags        groups
// @Accept      json
// @Produce     json
// @Param       token path string true "Invitation token"
// @Success     200 {object} models.GroupInvitation "Invitation"
// @Failure     404 {object} ErrorResponse "Invitation not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /invitations/{token} [get]
func (h *GroupHandler) GetInvitation(c *gin.Context) {
	invitation, err := h.groupService.GetInvitationByToken(c.Param("token"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invitation": invitation})
}

// AcceptInvitation handles redeeming an invitation
// @Summary     Accept invitation
// @Description Accept an invitation; the caller's email must match the invited address
// @Tags        groups
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body AcceptInvitationRequest true "Invitation token"
// @Success     200 {object} models.GroupMember "Membership"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Email mismatch"
// @Failure     404 {object} ErrorResponse "Invitation not found"
// @Failure     409 {object} ErrorResponse "Expired or already handled"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /invitations/accept [post]
func (h *GroupHandler) AcceptInvitation(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AcceptInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	member, err := h.groupService.AcceptInvitation(userID, req.Token)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "ACCEPT_INVITATION", "group", member.GroupID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"member": member})
}

// DeclineInvitation handles declining an invitation
// @Summary     Decline invitation
// @Description Decline a pending invitation
// @Tags        groups
// @Accept      json
// @Produce     json
// @Param       request body AcceptInvitationRequest true "Invitation token"
// @Success     200 {object} map[string]string "Invitation declined"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Invitation not found"
// @Failure     409 {object} ErrorResponse "Expired or already handled"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /invitations/decline [post]
func (h *GroupHandler) DeclineInvitation(c *gin.Context) {
	var req AcceptInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	if err := h.groupService.DeclineInvitation(req.Token); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "invitation declined"})
}

// GetGroupTransactions handles listing a group's shared ledger
// @Summary     Get group transactions
// @Description Get a paginated list of a group's transactions
// @Tags        groups
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id        path  int true  "Group ID"
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Paginated transactions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a group member"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /groups/{id}/transactions [get]
func (h *GroupHandler) GetGroupTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	groupID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter, err := parseTransactionFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.transactionService.GetGroupTransactions(userID, groupID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetGroupBalance handles the group aggregate balance query
// @Summary     Get group balance
// @Description Get a group's aggregate income/expense position
// @Tags        groups
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Group ID"
// @Success     200 {object} services.GroupBalance "Group balance"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a group member"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /groups/{id}/balance [get]
func (h *GroupHandler) GetGroupBalance(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	groupID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	balance, err := h.groupService.GetGroupBalance(userID, groupID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

// GetMemberBalances handles the per-member balance query
// @Summary     Get member balances
// @Description Get each active member's paid/owed/net position in a group
// @Tags        groups
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Group ID"
// @Success     200 {array} services.MemberBalance "Member balances"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a group member"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /groups/{id}/balances [get]
func (h *GroupHandler) GetMemberBalances(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	groupID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	balances, err := h.groupService.GetMemberBalances(userID, groupID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"balances": balances})
}
