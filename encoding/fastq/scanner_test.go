package fastq_test

import (
	"strings"
	"testing"

	"github.com/grailbio/mapper/encoding/fastq"
	"github.com/grailbio/mapper/sketch"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/pkg/errors"
)

var _ sketch.Parser = (*fastq.ReadTable)(nil)

const fq = `@NB500956:89:HW2FHBGX2:1:11101:25648:1069 1:N:0:ATCACG
ATACAGGCCTGANCCACTGTGCCCAGNCTANNTNATTANTGAANANAGAATNGTTNTAAATANANNNNNTNTNNNC
+
AAAAAEEEEEEE#EEAEEEEEEEEEE#EEE##E#EEEE#EEEE#E#EEEEE#EEE#EEEAEE#A#####E#E###E
@NB500956:89:HW2FHBGX2:1:11101:13871:1070 1:N:0:ATCACG
CTCAACTCTGAGNCAGACAGAAATACNTTTNNTNTGAGTTACANCNTTCTTTTTCNACATATNCNNNNNTNGNNNT
+
AAAAAEEEEEEE#EEEEEEEEEEEEE#EEE##E#EEEEEEEEE#E#EEEEEEEEE#EAEEEE#A#####E#A###E
@NB500956:89:HW2FHBGX2:1:11101:9975:1070 1:N:0:ATCACG
GAGTAACCACGTNCCCATGGCCACAGNTGANNGNGTCACACCTNANCCGGGAGAGNCAATCCNGNNNNNGNANNNC
+
AAAAAEEEEEEE#EEEEEEEEEAEEE#EEA##E#EEEEEEEE<#E#<EEEEEEEE#<EEEA/#/#####A#E###A
@NB500956:89:HW2FHBGX2:1:11101:20247:1070 1:N:0:ATCACG
GATCGGAAGAGCNCACGTCTGAACTCNAGTNNCNTCCCGATCTNGNATGCCGTCTNCTGCTTNANNNNNANANNNG
+
AAAAAEEEEEEE#EEEEEEEEEEEEE#AEE##E#A////6AE<#E#EEEEEEEEA#A/EE/E#E#####/#E###E
@NB500956:89:HW2FHBGX2:1:11101:17754:1070 1:N:0:ATCACG
CAAGCAACTTACNTTACTTTAGGCTGNAAANNGNCTGCCTGAANTNCCTGCTCACNAATCCCNCNNNNNCNTNNNT
+
AAAAAEEEEEEE#EEAEEEEEEEEEE#EEE##E#EEEEEEEEE#E#EEEEEEEEE#EAEAEA#/#####E#A###E
@NB500956:89:HW2FHBGX2:1:11101:26223:1070 1:N:0:ATCACG
TCAATTTCAGAACTTTTTATTGGTCTNTTCNNGNATTCATCTTNTNCCTGGTTTANTCTTGGNANNNNNTNTNNNT
+
AAAAAEEEEEEEEEEEEEEEEEEEEE#EEA##E#EEEEEEEEE#E#<EAEEEEEE#EEEEEE#E#####E#E###E
`

func scanErr(s string) error {
	sc := fastq.NewScanner(strings.NewReader(s), fastq.All)
	var r fastq.Read
	for sc.Scan(&r) {
	}
	return sc.Err()
}

func TestScan(t *testing.T) {
	sc := fastq.NewScanner(strings.NewReader(fq), fastq.All)
	var r fastq.Read
	assert.True(t, sc.Scan(&r), "err: %v", sc.Err())
	expect.EQ(t, r, fastq.Read{
		ID:   "@NB500956:89:HW2FHBGX2:1:11101:25648:1069 1:N:0:ATCACG",
		Seq:  "ATACAGGCCTGANCCACTGTGCCCAGNCTANNTNATTANTGAANANAGAATNGTTNTAAATANANNNNNTNTNNNC",
		Unk:  "+",
		Qual: "AAAAAEEEEEEE#EEAEEEEEEEEEE#EEE##E#EEEE#EEEE#E#EEEEE#EEE#EEEAEE#A#####E#E###E",
	})
	expect.EQ(t, r.Name(), "NB500956:89:HW2FHBGX2:1:11101:25648:1069")
	n := 1
	for sc.Scan(&r) {
		n++
	}
	expect.EQ(t, n, 6)
	expect.NoError(t, sc.Err())
	expect.False(t, sc.Scan(&r))
}

func TestScanFields(t *testing.T) {
	sc := fastq.NewScanner(strings.NewReader(fq), fastq.Seq)
	var r fastq.Read
	assert.True(t, sc.Scan(&r))
	expect.EQ(t, r.ID, "")
	expect.EQ(t, r.Qual, "")
	expect.EQ(t, len(r.Seq), 76)
}

func TestBadFASTQ(t *testing.T) {
	expect.EQ(t, errors.Cause(scanErr("12312#")), fastq.ErrInvalid)
	expect.EQ(t, errors.Cause(scanErr("@1234\nACGT\n-\nAAAA\n")), fastq.ErrInvalid)
	expect.EQ(t, errors.Cause(scanErr("@1234\nACGT\n+\nAAA\n")), fastq.ErrInvalid)
	expect.EQ(t, scanErr("@1234\n123"), fastq.ErrShort)
	expect.NoError(t, scanErr(""))
}

func TestLoad(t *testing.T) {
	table, err := fastq.Load(strings.NewReader(fq))
	assert.NoError(t, err)
	expect.EQ(t, table.NumReads(), uint64(6))
	n, err := table.ReadLength(5)
	expect.NoError(t, err)
	expect.EQ(t, n, uint64(76))
	name, seq, err := table.Read(1)
	expect.NoError(t, err)
	expect.EQ(t, name, "NB500956:89:HW2FHBGX2:1:11101:13871:1070")
	expect.True(t, strings.HasPrefix(seq, "CTCAACTCTGAG"), seq)
	_, _, err = table.Read(6)
	expect.Regexp(t, err, "out of range")

	_, err = fastq.Load(strings.NewReader("@r\nACGT\n+\n"))
	expect.EQ(t, errors.Cause(err), fastq.ErrShort)
}
