package keytab

import (
	"strings"
	"testing"
)

func TestPath(t *testing.T) {
	tests := []struct {
		base string
		uid  int
		dir  string
		path string
	}{
		{"/var/kerberos/krb5/user", 0, "/var/kerberos/krb5/user/0", "/var/kerberos/krb5/user/0/client.keytab"},
		{"/var/kerberos/krb5/user", 1000, "/var/kerberos/krb5/user/1000", "/var/kerberos/krb5/user/1000/client.keytab"},
		{"/srv/keytabs", 65534, "/srv/keytabs/65534", "/srv/keytabs/65534/client.keytab"},
		{"/var/kerberos/krb5/user", 4294967294, "/var/kerberos/krb5/user/4294967294", "/var/kerberos/krb5/user/4294967294/client.keytab"},
	}

	for _, test := range tests {
		if dir := UserDir(test.base, test.uid); dir != test.dir {
			t.Fatalf("UserDir(%s, %d) = %s, expected %s", test.base, test.uid, dir, test.dir)
		}
		if path := Path(test.base, test.uid); path != test.path {
			t.Fatalf("Path(%s, %d) = %s, expected %s", test.base, test.uid, path, test.path)
		}
	}
}

func TestPathNoLeadingZeros(t *testing.T) {
	for _, uid := range []int{1, 7, 100, 1000} {
		path := Path("/base", uid)
		if strings.Contains(path, "/0") {
			t.Fatalf("uid %d produced a zero-padded component: %s", uid, path)
		}
	}
}
