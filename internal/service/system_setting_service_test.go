package service

import "testing"

func TestSystemSettingServiceDefaults(t *testing.T) {
	gdb := setupServiceTestDB(t)

	svc := NewSystemSettingService(gdb)
	settings, err := svc.GetSettings()
	if err != nil {
		t.Fatalf("get settings failed: %v", err)
	}

	if settings != DefaultSystemSettings() {
		t.Fatalf("expected defaults, got %#v", settings)
	}
	if settings.BillingTerms != "Payable dès réception" {
		t.Fatalf("unexpected billing terms %q", settings.BillingTerms)
	}
}

func TestSystemSettingServiceUpdate(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewSystemSettingService(gdb)

	updated, err := svc.UpdateSettings(SystemSettingsInput{
		SiteName:     "  Santropol  ",
		BillingTerms: "Net 30",
	})
	if err != nil {
		t.Fatalf("update settings failed: %v", err)
	}
	if updated.SiteName != "Santropol" {
		t.Fatalf("expected trimmed site name, got %q", updated.SiteName)
	}
	if updated.BillingClass != defaultBillingClass {
		t.Fatalf("empty class should fall back to default, got %q", updated.BillingClass)
	}

	// 再次写入应覆盖旧值
	if _, err := svc.UpdateSettings(SystemSettingsInput{SiteName: "Santropol Roulant", BillingTerms: "Net 15"}); err != nil {
		t.Fatalf("second update failed: %v", err)
	}

	settings, err := svc.GetSettings()
	if err != nil {
		t.Fatalf("get settings failed: %v", err)
	}
	if settings.SiteName != "Santropol Roulant" || settings.BillingTerms != "Net 15" {
		t.Fatalf("unexpected settings after update: %#v", settings)
	}
}
