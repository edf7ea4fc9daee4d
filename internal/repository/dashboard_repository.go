package repository

import (
	"context"
	"database/sql"

	"github.com/SuyogBora/picode-server/internal/model"
)

// DashboardStats aggregates counts for the admin landing page.
type DashboardStats struct {
	Users              int                   `json:"users"`
	Blogs              map[string]int        `json:"blogs"`
	Careers            map[string]int        `json:"careers"`
	Applications       map[string]int        `json:"applications"`
	Inquiries          map[string]int        `json:"inquiries"`
	RecentApplications []*model.Application  `json:"recent_applications"`
	RecentInquiries    []*model.Inquiry      `json:"recent_inquiries"`
}

// DashboardRepo runs the aggregate queries behind GET /v1/dashboard.
type DashboardRepo struct {
	db           *sql.DB
	applications *ApplicationRepo
	inquiries    *InquiryRepo
}

func NewDashboardRepo(db *sql.DB) *DashboardRepo {
	return &DashboardRepo{db: db, applications: NewApplicationRepo(db), inquiries: NewInquiryRepo(db)}
}

// Stats collects per-status counts for each domain plus the most recent
// applications and inquiries.
func (r *DashboardRepo) Stats(ctx context.Context, recent int) (*DashboardStats, error) {
	s := &DashboardStats{}
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&s.Users); err != nil {
		return nil, err
	}
	var err error
	if s.Blogs, err = r.groupCount(ctx,
		"SELECT CASE WHEN published = 1 THEN 'published' ELSE 'draft' END AS k, COUNT(*) FROM blogs GROUP BY k"); err != nil {
		return nil, err
	}
	if s.Careers, err = r.groupCount(ctx, "SELECT status, COUNT(*) FROM careers GROUP BY status"); err != nil {
		return nil, err
	}
	if s.Applications, err = r.groupCount(ctx, "SELECT status, COUNT(*) FROM applications GROUP BY status"); err != nil {
		return nil, err
	}
	if s.Inquiries, err = r.groupCount(ctx, "SELECT status, COUNT(*) FROM inquiries GROUP BY status"); err != nil {
		return nil, err
	}
	if s.RecentApplications, err = r.applications.List(ctx, ApplicationFilter{Limit: recent}); err != nil {
		return nil, err
	}
	if s.RecentInquiries, err = r.inquiries.List(ctx, "", recent); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *DashboardRepo) groupCount(ctx context.Context, q string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var (
			k string
			n int
		)
		if err := rows.Scan(&k, &n); err != nil {
			return nil, err
		}
		out[k] = n
	}
	return out, rows.Err()
}
