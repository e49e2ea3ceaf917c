package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/campuscare/triage-service/internal/domain"
)

// StaffWorkload pairs a directory row with its current open ticket count.
type StaffWorkload struct {
	Staff       domain.StaffMember
	OpenTickets int
}

// StaffRepository reads the externally owned staff directory and computes
// assignment workloads. This core never writes staff rows.
type StaffRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.StaffMember, error)
	ListActiveByRoles(ctx context.Context, roles []domain.Role) ([]domain.StaffMember, error)
	// ListActiveWithWorkload returns active staff of the given roles ordered
	// by open workload ascending, id ascending. Open workload counts tickets
	// assigned to them in OPEN or IN_PROGRESS. Run inside the assignment
	// transaction so two tickets cannot both read a stale minimum.
	ListActiveWithWorkload(ctx context.Context, roles []domain.Role) ([]StaffWorkload, error)
}

type staffRepository struct {
	db DB
}

// NewStaffRepository instantiates the repository.
func NewStaffRepository(db DB) StaffRepository {
	return &staffRepository{db: db}
}

func (r *staffRepository) GetByID(ctx context.Context, id int64) (*domain.StaffMember, error) {
	const query = `
        SELECT id, name, email, role, status
        FROM staff_directory WHERE id=$1`
	var staff domain.StaffMember
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&staff.ID,
		&staff.Name,
		&staff.Email,
		&staff.Role,
		&staff.Status,
	); err != nil {
		return nil, err
	}
	return &staff, nil
}

func (r *staffRepository) ListActiveByRoles(ctx context.Context, roles []domain.Role) ([]domain.StaffMember, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	args := []any{}
	placeholders := make([]string, len(roles))
	for i, role := range roles {
		args = append(args, role)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}
	args = append(args, domain.PrincipalStatusActive)
	query := fmt.Sprintf(`
        SELECT id, name, email, role, status
        FROM staff_directory
        WHERE role IN (%s) AND status=$%d
        ORDER BY id ASC`, strings.Join(placeholders, ","), len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StaffMember
	for rows.Next() {
		var staff domain.StaffMember
		if err := rows.Scan(&staff.ID, &staff.Name, &staff.Email, &staff.Role, &staff.Status); err != nil {
			return nil, err
		}
		result = append(result, staff)
	}
	return result, rows.Err()
}

func (r *staffRepository) ListActiveWithWorkload(ctx context.Context, roles []domain.Role) ([]StaffWorkload, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	args := []any{}
	placeholders := make([]string, len(roles))
	for i, role := range roles {
		args = append(args, role)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}
	args = append(args, domain.PrincipalStatusActive)
	statusArg := len(args)
	query := fmt.Sprintf(`
        SELECT s.id, s.name, s.email, s.role, s.status, COUNT(t.id) AS open_tickets
        FROM staff_directory s
        LEFT JOIN tickets t ON t.assigned_to = s.id AND t.status IN ('OPEN','IN_PROGRESS')
        WHERE s.role IN (%s) AND s.status=$%d
        GROUP BY s.id, s.name, s.email, s.role, s.status
        ORDER BY open_tickets ASC, s.id ASC`, strings.Join(placeholders, ","), statusArg)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []StaffWorkload
	for rows.Next() {
		var entry StaffWorkload
		if err := rows.Scan(
			&entry.Staff.ID,
			&entry.Staff.Name,
			&entry.Staff.Email,
			&entry.Staff.Role,
			&entry.Staff.Status,
			&entry.OpenTickets,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
