package azureblob

import "testing"

func TestNewWithSharedKeyCredential(t *testing.T) {
	p, err := New("blob", Config{
		Container:   "satellite-data",
		AccountName: "testaccount",
		AccountKey:  "dGVzdGtleQ==", // base64 "testkey"
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Name() != "blob" {
		t.Errorf("Name() = %q; want blob", p.Name())
	}
}

func TestNewWithConnectionString(t *testing.T) {
	p, err := New("blob", Config{
		Container:        "satellite-data",
		ConnectionString: "DefaultEndpointsProtocol=https;AccountName=testaccount;AccountKey=dGVzdGtleQ==;EndpointSuffix=core.windows.net",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Name() != "blob" {
		t.Errorf("Name() = %q; want blob", p.Name())
	}
}

func TestNewInvalidAccountKeyFails(t *testing.T) {
	_, err := New("blob", Config{
		Container:   "satellite-data",
		AccountName: "testaccount",
		AccountKey:  "not-valid-base64!!",
	})
	if err == nil {
		t.Fatal("expected error for malformed account key")
	}
}

func TestFullKeyWithAndWithoutPrefix(t *testing.T) {
	p := &Provider{prefix: "raw"}
	if got := p.fullKey("a.nc"); got != "raw/a.nc" {
		t.Errorf("fullKey with prefix = %q; want raw/a.nc", got)
	}

	noPrefix := &Provider{}
	if got := noPrefix.fullKey("a.nc"); got != "a.nc" {
		t.Errorf("fullKey without prefix = %q; want a.nc", got)
	}
}
