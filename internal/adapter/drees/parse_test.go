package drees

import (
	"math"
	"strings"
	"testing"

	"github.com/couchcryptid/covid-severity-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHeader = "date;vac_statut;age;nb_PCR;hc_pcr;sc_pcr;dc_pcr;effectif\n"

func TestParse_ValidRows(t *testing.T) {
	body := testHeader +
		"2021-03-01;Non-vaccinés;[20,39];100;3;1;0;1000\n" +
		`2021-03-01;Complet de 6 mois et plus - avec rappel;"[80;+]";50;7;2;4;2000.5` + "\n"

	res, err := Parse(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, 0, res.Skipped)

	first := res.Records[0]
	assert.Equal(t, domain.NewDay(2021, 3, 1), first.Date)
	assert.Equal(t, "[20,39]", first.Age)
	assert.Equal(t, "Non-vaccinés", first.VacStatus)
	assert.Equal(t, 3.0, first.Hospital)
	assert.Equal(t, 1.0, first.ICU)
	assert.Equal(t, 0.0, first.Deaths)
	assert.Equal(t, 1000.0, first.Population)

	second := res.Records[1]
	assert.Equal(t, "[80;+]", second.Age)
	assert.Equal(t, 2000.5, second.Population)
}

func TestParse_QuotedAgeWithDelimiter(t *testing.T) {
	body := testHeader + `2021-03-02;Non-vaccinés;"[80;+]";1;2;3;4;5` + "\n"

	res, err := Parse(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "[80;+]", res.Records[0].Age)
}

func TestParse_BOMAndReorderedColumns(t *testing.T) {
	body := "\ufeffeffectif;dc_pcr;sc_pcr;hc_pcr;age;vac_statut;date\n" +
		"500;1;2;3;[0,19];Non-vaccinés;2021-03-03\n"

	res, err := Parse(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	r := res.Records[0]
	assert.Equal(t, domain.NewDay(2021, 3, 3), r.Date)
	assert.Equal(t, 3.0, r.Hospital)
	assert.Equal(t, 2.0, r.ICU)
	assert.Equal(t, 1.0, r.Deaths)
	assert.Equal(t, 500.0, r.Population)
}

func TestParse_EmptyCells(t *testing.T) {
	body := testHeader + "2021-03-04;Non-vaccinés;[40,59];;;;;\n"

	res, err := Parse(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	r := res.Records[0]
	assert.Zero(t, r.Hospital)
	assert.Zero(t, r.ICU)
	assert.Zero(t, r.Deaths)
	assert.True(t, math.IsNaN(r.Population), "blank population must stay unknown")
}

func TestParse_SkipsMalformedRows(t *testing.T) {
	body := testHeader +
		"2021-03-05;Non-vaccinés;[20,39];1;1;1;1;100\n" + // valid
		"not-a-date;Non-vaccinés;[20,39];1;1;1;1;100\n" + // bad date
		"2021-03-05;Non-vaccinés;[20,39];1;abc;1;1;100\n" + // bad number
		"2021-03-05;Non-vaccinés;[20,39];1;-2;1;1;100\n" + // negative count
		"2021-03-05;Non-vaccinés;[20,39];1;1;1;1;-100\n" + // negative population
		"2021-03-05;;[20,39];1;1;1;1;100\n" + // missing status
		"2021-03-05;Non-vaccinés;;1;1;1;1;100\n" + // missing age
		"2021-03-05;Non-vaccinés;[20,39];1;1\n" + // short row
		"2021-03-05;Non-vacc\xffinés;[20,39];1;1;1;1;100\n" + // invalid UTF-8
		"2021-03-05;Non-vaccinés;[40,59];2;2;2;2;200\n" // valid

	res, err := Parse(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, 8, res.Skipped)
	assert.Equal(t, "[40,59]", res.Records[1].Age)
}

func TestParse_MissingColumn(t *testing.T) {
	body := "date;vac_statut;age;hc_pcr;sc_pcr;dc_pcr\n2021-03-01;Non-vaccinés;[20,39];1;1;1\n"

	_, err := Parse(strings.NewReader(body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "effectif")
}

func TestParse_Empty(t *testing.T) {
	res, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, res.Records)

	res, err = Parse(strings.NewReader(testHeader))
	require.NoError(t, err)
	assert.Empty(t, res.Records)
}

func TestParse_StrayQuoteOnlyCostsItsRow(t *testing.T) {
	body := testHeader +
		"2021-01-02;Non-vaccinés;[0,19];1;1;0;0;1000\n" +
		`2021-01-03;Non-vaccinés;[0,19];"unterminated;1;0;0;1000` + "\n" +
		"2021-01-04;Non-vaccinés;[0,19];1;99;0;0;1000\r\n" +
		"2021-01-05;Non-vaccinés;[0,19];1;5;0;0;1000\n"

	res, err := Parse(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Records, 3)

	after := res.Records[1]
	assert.Equal(t, domain.NewDay(2021, 1, 4), after.Date)
	assert.Equal(t, 99.0, after.Hospital)
	assert.Equal(t, domain.NewDay(2021, 1, 5), res.Records[2].Date)
}

func TestParse_BlankLinesIgnored(t *testing.T) {
	body := testHeader + "\n2021-03-01;Non-vaccinés;[20,39];1;1;1;1;100\n\n"

	res, err := Parse(strings.NewReader(body))
	require.NoError(t, err)
	assert.Len(t, res.Records, 1)
	assert.Zero(t, res.Skipped)
}
