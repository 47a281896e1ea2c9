package influxv1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EcoPowerHub/tsdesk/pkg/db"
)

func TestParseInsert(t *testing.T) {
	cases := []struct {
		stmt string
		want Insert
	}{
		{`INSERT INTO "testdb" cpu,host=server01 value=0.64`, Insert{Database: "testdb", Payload: "cpu,host=server01 value=0.64"}},
		{`INSERT INTO 'testdb' cpu,host=server01 value=0.64`, Insert{Database: "testdb", Payload: "cpu,host=server01 value=0.64"}},
		{`INSERT INTO testdb cpu,host=server01 value=0.64`, Insert{Database: "testdb", Payload: "cpu,host=server01 value=0.64"}},
		{`insert into testdb.autogen cpu value=1i`, Insert{Database: "testdb", RetentionPolicy: "autogen", Payload: "cpu value=1i"}},
		{`INSERT cpu,host=server01 value=0.64`, Insert{Payload: "cpu,host=server01 value=0.64"}},
		{"  INSERT\tINTO \"my db\"   weather,city=\"a b\" temp=21.5 1700000000000000000  ", Insert{Database: "my db", Payload: `weather,city="a b" temp=21.5 1700000000000000000`}},
		{`INSERT into_cpu value=1`, Insert{Payload: "into_cpu value=1"}},
		{`INSERT INTO "my\"db" cpu value=1`, Insert{Database: `my"db`, Payload: "cpu value=1"}},
		{`INSERT INTO 'o\'brien' cpu value=1`, Insert{Database: "o'brien", Payload: "cpu value=1"}},
		{`INSERT INTO "back\\slash" cpu value=1`, Insert{Database: `back\slash`, Payload: "cpu value=1"}},
	}
	for _, tc := range cases {
		got, err := ParseInsert(tc.stmt)
		require.NoError(t, err, tc.stmt)
		assert.Equal(t, tc.want, got, tc.stmt)
	}
}

func TestParseInsertErrors(t *testing.T) {
	for _, stmt := range []string{
		`SELECT * FROM cpu`,
		`INSERTINTO testdb cpu value=1`,
		`INSERT INTO "testdb cpu value=1`,
		`INSERT INTO "testdb\" cpu value=1`,
		`INSERT INTO testdb" cpu value=1`,
		`INSERT INTO "testdb"`,
		`INSERT INTO testdb`,
		`INSERT INTO`,
		`INSERT INTO "" cpu value=1`,
		`INSERT   `,
		``,
	} {
		_, err := ParseInsert(stmt)
		require.Error(t, err, stmt)
		assert.Equal(t, db.KindValidation, db.KindOf(err), stmt)
	}
}

func TestIsInsert(t *testing.T) {
	assert.True(t, IsInsert("INSERT cpu value=1"))
	assert.True(t, IsInsert("  insert into db cpu value=1"))
	assert.False(t, IsInsert("SELECT 1"))
	assert.False(t, IsInsert("INSERTS"))
}
