package service

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func newUserFixture(seed ...*domain.User) (*UserService, *stubUserRepo, *stubMailer) {
	users := newStubUserRepo(seed...)
	mailer := &stubMailer{}
	svc := NewUserService(UserDependencies{
		UserRepo: users,
		Mailer:   mailer,
		Config:   testAuthConfig(),
		Now:      func() time.Time { return fixedNow },
	})
	return svc, users, mailer
}

func manager(id int64) *domain.User {
	return &domain.User{ID: id, Name: "Mgr", Email: "mgr@example.com", Role: domain.RoleManager, IsVerified: true}
}

func itStaff(id int64, department string) *domain.User {
	u := &domain.User{ID: id, Name: "Staff", Email: "staff@example.com", Role: domain.RoleITStaff, IsVerified: true}
	if department != "" {
		u.Department = &department
	}
	return u
}

func TestCreateUserProvisioning(t *testing.T) {
	t.Parallel()

	acting := manager(3)
	svc, _, mailer := newUserFixture(acting)

	user, err := svc.Create(context.Background(), acting, UserCreateInput{
		Name: "New Hire", Email: "hire@example.com", Password: "welcome1", Role: domain.RoleITStaff,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if user.Role != domain.RoleITStaff {
		t.Errorf("role = %s, want it_staff", user.Role)
	}
	if !user.IsVerified {
		t.Error("provisioned accounts must be verified")
	}
	if !user.MustChangePassword {
		t.Error("provisioned accounts must be flagged to change password")
	}
	if user.CreatedBy == nil || *user.CreatedBy != 3 {
		t.Errorf("createdBy = %v, want 3", user.CreatedBy)
	}
	if len(mailer.sent) != 1 {
		t.Errorf("sent %d mails, want 1", len(mailer.sent))
	}
}

func TestCreateUserRoleForcedForITStaff(t *testing.T) {
	t.Parallel()

	acting := itStaff(2, "IT")
	svc, _, _ := newUserFixture(acting)

	user, err := svc.Create(context.Background(), acting, UserCreateInput{
		Name: "New Hire", Email: "hire@example.com", Password: "welcome1", Role: domain.RoleManager,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if user.Role != domain.RoleEmployee {
		t.Errorf("role = %s, want employee regardless of request", user.Role)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	t.Parallel()

	acting := manager(3)
	existing := &domain.User{ID: 5, Name: "X", Email: "dup@example.com", Role: domain.RoleEmployee}
	svc, _, _ := newUserFixture(acting, existing)

	if code := errCode(t, mustErr(svc.Create(context.Background(), acting, UserCreateInput{
		Name: "Y", Email: "dup@example.com", Password: "welcome1",
	}))); code != "CONFLICT" {
		t.Errorf("code = %s, want CONFLICT", code)
	}
}

func TestUpdateRoleGuards(t *testing.T) {
	t.Parallel()

	mgr := manager(3)
	target := &domain.User{ID: 7, Name: "T", Email: "t@example.com", Role: domain.RoleEmployee}
	svc, _, _ := newUserFixture(mgr, target)

	if code := errCode(t, mustErr(svc.UpdateRole(context.Background(), mgr, 3, domain.RoleEmployee))); code != "FORBIDDEN" {
		t.Errorf("self role change: code = %s", code)
	}

	user, err := svc.UpdateRole(context.Background(), mgr, 7, domain.RoleITStaff)
	if err != nil {
		t.Fatalf("update role: %v", err)
	}
	if user.Role != domain.RoleITStaff {
		t.Errorf("role = %s", user.Role)
	}

	staff := itStaff(2, "IT")
	svcStaff, _, _ := newUserFixture(staff, target)
	if code := errCode(t, mustErr(svcStaff.UpdateRole(context.Background(), staff, 7, domain.RoleITStaff))); code != "FORBIDDEN" {
		t.Errorf("it_staff role change: code = %s", code)
	}
}

func TestUpdateStatusGuards(t *testing.T) {
	t.Parallel()

	staff := itStaff(2, "IT")
	mgr := manager(3)
	employee := &domain.User{ID: 7, Name: "E", Email: "e@example.com", Role: domain.RoleEmployee, IsVerified: true}
	svc, users, _ := newUserFixture(staff, mgr, employee)

	if code := errCode(t, mustErr(svc.UpdateStatus(context.Background(), staff, 2, false))); code != "FORBIDDEN" {
		t.Errorf("self deactivation: code = %s", code)
	}
	if code := errCode(t, mustErr(svc.UpdateStatus(context.Background(), staff, 3, false))); code != "FORBIDDEN" {
		t.Errorf("it_staff on manager: code = %s", code)
	}

	user, err := svc.UpdateStatus(context.Background(), staff, 7, false)
	if err != nil {
		t.Fatalf("deactivate employee: %v", err)
	}
	if user.IsVerified {
		t.Error("employee should be deactivated")
	}
	stored, _ := users.GetByID(context.Background(), 7)
	if stored.IsVerified {
		t.Error("deactivation not persisted")
	}
}

func TestUpdateDepartment(t *testing.T) {
	t.Parallel()

	mgr := manager(3)
	dept := "Finance"
	target := &domain.User{ID: 7, Name: "T", Email: "t@example.com", Role: domain.RoleEmployee, Department: &dept}
	svc, _, _ := newUserFixture(mgr, target)

	user, err := svc.UpdateDepartment(context.Background(), mgr, 7, "Legal")
	if err != nil {
		t.Fatalf("set department: %v", err)
	}
	if user.Department == nil || *user.Department != "Legal" {
		t.Errorf("department = %v", user.Department)
	}

	user, err = svc.UpdateDepartment(context.Background(), mgr, 7, "  ")
	if err != nil {
		t.Fatalf("clear department: %v", err)
	}
	if user.Department != nil {
		t.Errorf("department should be cleared, got %v", *user.Department)
	}

	staff := itStaff(2, "IT")
	svcStaff, _, _ := newUserFixture(staff, manager(3))
	if code := errCode(t, mustErr(svcStaff.UpdateDepartment(context.Background(), staff, 3, "IT"))); code != "FORBIDDEN" {
		t.Errorf("it_staff on manager: code = %s", code)
	}
}

func TestDeleteUserGuards(t *testing.T) {
	t.Parallel()

	mgr := manager(3)
	target := &domain.User{ID: 7, Name: "T", Email: "t@example.com", Role: domain.RoleEmployee}
	svc, users, _ := newUserFixture(mgr, target)

	if code := errCode(t, svc.Delete(context.Background(), mgr, 3)); code != "FORBIDDEN" {
		t.Errorf("self delete: code = %s", code)
	}
	if err := svc.Delete(context.Background(), mgr, 7); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(users.deleted) != 1 || users.deleted[0] != 7 {
		t.Errorf("deleted = %v", users.deleted)
	}
	if code := errCode(t, svc.Delete(context.Background(), mgr, 7)); code != "NOT_FOUND" {
		t.Errorf("second delete: code = %s", code)
	}

	staff := itStaff(2, "IT")
	svcStaff, _, _ := newUserFixture(staff)
	if code := errCode(t, svcStaff.Delete(context.Background(), staff, 7)); code != "FORBIDDEN" {
		t.Errorf("it_staff delete: code = %s", code)
	}
}

func TestResendVerificationForUser(t *testing.T) {
	t.Parallel()

	mgr := manager(3)
	unverified := &domain.User{ID: 7, Name: "T", Email: "t@example.com", Role: domain.RoleEmployee}
	verified := &domain.User{ID: 8, Name: "V", Email: "v@example.com", Role: domain.RoleEmployee, IsVerified: true}
	svc, users, mailer := newUserFixture(mgr, unverified, verified)

	if err := svc.ResendVerification(context.Background(), mgr, 7); err != nil {
		t.Fatalf("resend: %v", err)
	}
	stored, _ := users.GetByID(context.Background(), 7)
	if stored.VerificationCode == nil || stored.VerificationExpires == nil {
		t.Fatal("no code pair stored")
	}
	wantExpiry := fixedNow.Add(24 * time.Hour)
	if !stored.VerificationExpires.Equal(wantExpiry) {
		t.Errorf("expiry = %v, want %v", stored.VerificationExpires, wantExpiry)
	}
	if len(mailer.sent) != 1 {
		t.Errorf("sent %d mails, want 1", len(mailer.sent))
	}

	if code := errCode(t, svc.ResendVerification(context.Background(), mgr, 8)); code != "VALIDATION_FAILED" {
		t.Errorf("verified target: code = %s", code)
	}
}

func TestListScopesITStaffToOwnDepartment(t *testing.T) {
	t.Parallel()

	staff := itStaff(2, "IT")
	svc, users, _ := newUserFixture(staff)
	users.findUsers = []domain.User{}
	users.findTotal = 0

	other := "Finance"
	if _, err := svc.List(context.Background(), staff, UserListInput{Department: &other}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if users.lastFilter.Department == nil || *users.lastFilter.Department != "IT" {
		t.Errorf("department filter = %v, want forced to IT", users.lastFilter.Department)
	}

	// Staff without a department see nothing at all.
	bare := itStaff(4, "")
	svcBare, usersBare, _ := newUserFixture(bare)
	page, err := svcBare.List(context.Background(), bare, UserListInput{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 0 || len(page.Results) != 0 {
		t.Errorf("page = %+v, want empty", page)
	}
	if usersBare.lastFilter.Limit != 0 {
		t.Error("repository should not have been queried")
	}
}

func TestListManagerPassesFiltersThrough(t *testing.T) {
	t.Parallel()

	mgr := manager(3)
	svc, users, _ := newUserFixture(mgr)
	role := domain.RoleEmployee
	verified := true
	dept := "Finance"
	users.findTotal = 41

	page, err := svc.List(context.Background(), mgr, UserListInput{
		Role: &role, IsVerified: &verified, Department: &dept, Page: 3, Limit: 10,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	f := users.lastFilter
	if f.Role == nil || *f.Role != domain.RoleEmployee || f.IsVerified == nil || !*f.IsVerified {
		t.Errorf("filter = %+v", f)
	}
	if f.Department == nil || *f.Department != "Finance" {
		t.Errorf("department = %v", f.Department)
	}
	if f.Limit != 10 || f.Offset != 20 {
		t.Errorf("limit/offset = %d/%d", f.Limit, f.Offset)
	}
	if page.TotalPages != 5 {
		t.Errorf("totalPages = %d, want 5", page.TotalPages)
	}
}

func TestUserStatsRequiresManager(t *testing.T) {
	t.Parallel()

	mgr := manager(3)
	svc, users, _ := newUserFixture(mgr)
	users.stats = &domain.UserStats{Total: 12, Active: 10, Inactive: 2}

	stats, err := svc.Stats(context.Background(), mgr)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 12 {
		t.Errorf("stats = %+v", stats)
	}

	staff := itStaff(2, "IT")
	svcStaff, _, _ := newUserFixture(staff)
	if code := errCode(t, mustErr(svcStaff.Stats(context.Background(), staff))); code != "FORBIDDEN" {
		t.Errorf("it_staff stats: code = %s", code)
	}
}
