package repository

import (
    "context"
    "database/sql"

    "github.com/campushq/campus-reservation/internal/model"
)

// TeacherRepo provides read access to teachers.  Teacher accounts are
// provisioned by the external identity service; requests arrive with a
// JWT whose subject is the teacher's login user id.
type TeacherRepo struct {
    db *sql.DB
}

// NewTeacherRepo constructs a TeacherRepo with the given DB handle.
func NewTeacherRepo(db *sql.DB) *TeacherRepo {
    return &TeacherRepo{db: db}
}

// GetByID retrieves a teacher by primary key.  Returns
// ErrTeacherNotFound when no row exists.
func (r *TeacherRepo) GetByID(ctx context.Context, id uint64) (*model.Teacher, error) {
    const q = `SELECT id, user_id, name, created_at FROM teachers WHERE id = ?`
    var t model.Teacher
    err := r.db.QueryRowContext(ctx, q, id).Scan(&t.ID, &t.UserID, &t.Name, &t.CreatedAt)
    if err == sql.ErrNoRows {
        return nil, ErrTeacherNotFound
    }
    if err != nil {
        return nil, err
    }
    return &t, nil
}

// GetByUserID resolves the teacher behind a login identity.  Returns
// ErrTeacherNotFound when the user has no teacher record.
func (r *TeacherRepo) GetByUserID(ctx context.Context, userID uint64) (*model.Teacher, error) {
    const q = `SELECT id, user_id, name, created_at FROM teachers WHERE user_id = ?`
    var t model.Teacher
    err := r.db.QueryRowContext(ctx, q, userID).Scan(&t.ID, &t.UserID, &t.Name, &t.CreatedAt)
    if err == sql.ErrNoRows {
        return nil, ErrTeacherNotFound
    }
    if err != nil {
        return nil, err
    }
    return &t, nil
}
