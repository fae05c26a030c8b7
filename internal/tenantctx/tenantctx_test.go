package tenantctx

import (
	"testing"

	"mediahub/internal/errs"
	"mediahub/pkg/models"
)

func TestCheckOwnershipRejectsCrossTenantAsNotFound(t *testing.T) {
	tc := Context{TenantID: "tenant-a"}
	err := CheckOwnership(tc, "tenant-b")
	if !errs.Is(err, errs.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestCheckOwnershipAllowsAdminBypass(t *testing.T) {
	tc := Context{TenantID: "tenant-a", Admin: true}
	if err := CheckOwnership(tc, "tenant-b"); err != nil {
		t.Fatalf("expected admin bypass, got %v", err)
	}
}

func TestRequirePermission(t *testing.T) {
	tc := Context{Permissions: map[models.Permission]bool{models.PermCanUpload: true}}

	if err := tc.Require(models.PermCanUpload); err != nil {
		t.Fatalf("expected permission granted, got %v", err)
	}

	if err := tc.Require(models.PermCanManageCredentials); !errs.Is(err, errs.PermissionDenied) {
		t.Fatalf("expected PermissionDenied, got %v", err)
	}
}
