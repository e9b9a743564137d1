package repository

import (
    "context"
    "database/sql"
    "encoding/json"

    "github.com/campushq/campus-reservation/internal/model"
)

// StudentRepo provides read access to students.  Students are input to
// the allocation engine; this service never mutates them.
type StudentRepo struct {
    db *sql.DB
}

// NewStudentRepo constructs a StudentRepo with the given DB handle.
func NewStudentRepo(db *sql.DB) *StudentRepo {
    return &StudentRepo{db: db}
}

const studentColumns = `id, name, branch, accessibility_needs, created_at`

func scanStudent(row interface{ Scan(...any) error }) (*model.Student, error) {
    var st model.Student
    var needs sql.NullString
    if err := row.Scan(&st.ID, &st.Name, &st.Branch, &needs, &st.CreatedAt); err != nil {
        return nil, err
    }
    if needs.Valid && needs.String != "" {
        if err := json.Unmarshal([]byte(needs.String), &st.AccessibilityNeeds); err != nil {
            return nil, err
        }
    }
    return &st, nil
}

// GetByID retrieves a student by id.  Returns ErrStudentNotFound when no
// row exists.
func (r *StudentRepo) GetByID(ctx context.Context, id uint64) (*model.Student, error) {
    const q = `SELECT ` + studentColumns + ` FROM students WHERE id = ?`
    st, err := scanStudent(r.db.QueryRowContext(ctx, q, id))
    if err == sql.ErrNoRows {
        return nil, ErrStudentNotFound
    }
    return st, err
}

// ListUnseatedByBranch returns every student of a branch who currently
// holds no allocated seat, in ascending id order.  The fixed order is
// half of what makes allocation deterministic; the other half is the
// seat ordering in ListAvailableByRooms.
func (r *StudentRepo) ListUnseatedByBranch(ctx context.Context, branch string) ([]model.Student, error) {
    const q = `SELECT ` + studentColumns + ` FROM students st
               WHERE st.branch = ?
                 AND NOT EXISTS (
                     SELECT 1 FROM seats s
                     WHERE s.student_id = st.id AND s.status = 'ALLOCATED'
                 )
               ORDER BY st.id`
    rows, err := r.db.QueryContext(ctx, q, branch)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var result []model.Student
    for rows.Next() {
        st, err := scanStudent(rows)
        if err != nil {
            return nil, err
        }
        result = append(result, *st)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return result, nil
}
