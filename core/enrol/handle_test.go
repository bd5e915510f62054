package enrol

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core/school"
)

func TestUniqueHandle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	parents := f.store.Parents()

	for _, p := range []school.Parent{
		{ID: "p1", Username: "janedoe", Name: "Jane", Surname: "Doe", Phone: "0000000001"},
		{ID: "p2", Username: "janedoe1", Name: "Jane", Surname: "Doe", Phone: "0000000002"},
		{ID: "p3", Username: "bob", Name: "Bob", Surname: "Smith", Phone: "0000000003"},
	} {
		_, err := parents.CreateParent(ctx, p)
		require.NoError(t, err)
	}

	tests := []struct {
		base string
		want string
	}{
		{base: "alice", want: "alice"},
		{base: "bob", want: "bob1"},
		{base: "janedoe", want: "janedoe2"},
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			got, err := UniqueHandle(ctx, parents, tt.base)
			if assert.NoError(t, err) {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func Test_guardianHandle(t *testing.T) {
	tests := []struct {
		name, surname string
		want          string
	}{
		{name: "Jane", surname: "Doe", want: "janedoe"},
		{name: "Mary Ann", surname: " Van  Dyke ", want: "maryannvandyke"},
		{name: "ÉLODIE", surname: "Kabila", want: "élodiekabila"},
	}
	for _, tt := range tests {
		if got := guardianHandle(tt.name, tt.surname); got != tt.want {
			t.Errorf("guardianHandle(%q, %q) = %q, want %q", tt.name, tt.surname, got, tt.want)
		}
	}
}

func Test_lastDigits(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{n: 1714557600123456789, want: "0123456789"},
		{n: 42, want: "0000000042"},
		{n: 1234567890, want: "1234567890"},
	}
	for _, tt := range tests {
		if got := lastDigits(tt.n, placeholderPhoneLen); got != tt.want {
			t.Errorf("lastDigits(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func Test_nameRatio(t *testing.T) {
	assert.Equal(t, 1.0, nameRatio("Jane", "jane"))
	assert.GreaterOrEqual(t, nameRatio("Jon", "John"), similarGuardianRatio)
	assert.Less(t, nameRatio("Jane", "Robert"), similarGuardianRatio)
}
