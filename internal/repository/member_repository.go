package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gift-approval-api/internal/models"
)

// MemberRepository reads the member directory.
type MemberRepository struct {
	db *sqlx.DB
}

// NewMemberRepository constructs the repository.
func NewMemberRepository(db *sqlx.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

// FindByLogin returns the active member with login. Missing rows return sql.ErrNoRows.
func (r *MemberRepository) FindByLogin(ctx context.Context, login string) (*models.Member, error) {
	const query = `SELECT member_id, member_login, merchant_name, currency, vip_level, is_active
	FROM members WHERE member_login = $1 AND is_active`
	var member models.Member
	if err := r.db.GetContext(ctx, &member, query, login); err != nil {
		return nil, err
	}
	return &member, nil
}

// ListActive returns every active member.
func (r *MemberRepository) ListActive(ctx context.Context) ([]models.Member, error) {
	const query = `SELECT member_id, member_login, merchant_name, currency, vip_level, is_active
	FROM members WHERE is_active ORDER BY member_login`
	var members []models.Member
	if err := r.db.SelectContext(ctx, &members, query); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}
