package pubmed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/bibliographic-ingest/internal/domain"
	"github.com/helixir/bibliographic-ingest/internal/papersources"
)

const efetchArticleXML = `<?xml version="1.0" encoding="UTF-8" ?>
<PubmedArticleSet>
	<PubmedArticle>
		<MedlineCitation Status="MEDLINE" Owner="NLM">
			<PMID Version="1">12345678</PMID>
			<Article PubModel="Print-Electronic">
				<Journal>
					<JournalIssue CitedMedium="Internet">
						<Volume>25</Volume>
						<Issue>3</Issue>
						<PubDate>
							<Year>2023</Year>
							<Month>Mar</Month>
							<Day>15</Day>
						</PubDate>
					</JournalIssue>
					<Title>Journal of Testing</Title>
					<ISOAbbreviation>J Test</ISOAbbreviation>
				</Journal>
				<ArticleTitle>CRISPR-Cas9 editing in <i>Mus musculus</i></ArticleTitle>
				<Pagination>
					<MedlinePgn>123-145</MedlinePgn>
				</Pagination>
				<ELocationID EIdType="doi" ValidYN="Y">10.1234/TEST.2023.001</ELocationID>
				<Abstract>
					<AbstractText Label="BACKGROUND" NlmCategory="BACKGROUND">Gene editing has changed research.</AbstractText>
					<AbstractText Label="METHODS" NlmCategory="METHODS">We analyzed <b>many</b> studies.</AbstractText>
				</Abstract>
				<AuthorList CompleteYN="Y">
					<Author ValidYN="Y">
						<LastName>Smith</LastName>
						<ForeName>John A</ForeName>
						<Identifier Source="ORCID">0000-0001-2345-6789</Identifier>
						<AffiliationInfo>
							<Affiliation>Department of Genetics, University of Research</Affiliation>
						</AffiliationInfo>
						<AffiliationInfo>
							<Affiliation>University of North Carolina at Chapel Hill</Affiliation>
						</AffiliationInfo>
					</Author>
					<Author ValidYN="N">
						<LastName>Ghost</LastName>
						<ForeName>Invalid</ForeName>
					</Author>
					<Author ValidYN="Y">
						<CollectiveName>CRISPR Research Consortium</CollectiveName>
					</Author>
				</AuthorList>
				<GrantList CompleteYN="Y">
					<Grant><GrantID>R01 GM000001</GrantID><Agency>NIGMS NIH HHS</Agency><Country>United States</Country></Grant>
					<Grant><GrantID>R01 GM000002</GrantID><Agency>NIGMS NIH HHS</Agency><Country>United States</Country></Grant>
					<Grant><Agency>Wellcome Trust</Agency></Grant>
				</GrantList>
				<ArticleDate DateType="Electronic">
					<Year>2023</Year>
					<Month>02</Month>
					<Day>28</Day>
				</ArticleDate>
			</Article>
			<MeshHeadingList>
				<MeshHeading>
					<DescriptorName UI="D000090386" MajorTopicYN="N">CRISPR-Cas Systems</DescriptorName>
				</MeshHeading>
				<MeshHeading>
					<DescriptorName UI="D000077269" MajorTopicYN="N">Gene Editing</DescriptorName>
				</MeshHeading>
			</MeshHeadingList>
			<KeywordList Owner="NOTNLM">
				<Keyword MajorTopicYN="N">CRISPR</Keyword>
				<Keyword MajorTopicYN="N">Gene editing</Keyword>
			</KeywordList>
		</MedlineCitation>
		<PubmedData>
			<PublicationStatus>ppublish</PublicationStatus>
			<ArticleIdList>
				<ArticleId IdType="pubmed">12345678</ArticleId>
				<ArticleId IdType="doi">10.1234/test.2023.001</ArticleId>
				<ArticleId IdType="pmc">PMC9876543</ArticleId>
			</ArticleIdList>
		</PubmedData>
	</PubmedArticle>
</PubmedArticleSet>`

const efetchMedlineDateXML = `<PubmedArticleSet>
	<PubmedArticle>
		<MedlineCitation>
			<PMID>87654321</PMID>
			<Article>
				<Journal>
					<JournalIssue>
						<Volume>10</Volume>
						<PubDate><MedlineDate>2022 Jan-Feb</MedlineDate></PubDate>
					</JournalIssue>
					<ISOAbbreviation>Mol Ther Methods</ISOAbbreviation>
				</Journal>
				<ArticleTitle>Advances in Gene Therapy Delivery Systems</ArticleTitle>
				<Pagination><StartPage>50</StartPage><EndPage>75</EndPage></Pagination>
				<Abstract><AbstractText>Single section abstract.</AbstractText></Abstract>
			</Article>
		</MedlineCitation>
		<PubmedData>
			<ArticleIdList>
				<ArticleId IdType="pubmed">87654321</ArticleId>
				<ArticleId IdType="doi">10.5678/mol.2022.050</ArticleId>
			</ArticleIdList>
		</PubmedData>
	</PubmedArticle>
</PubmedArticleSet>`

func TestBuilder_Build(t *testing.T) {
	t.Run("full article", func(t *testing.T) {
		meta, err := Builder{}.Build(&papersources.RawRecord{
			Provider: domain.ProviderPubMed,
			Payload:  []byte(efetchArticleXML),
			IDs:      domain.CandidateIDs{PrimaryID: "12345678"},
		})
		require.NoError(t, err)

		assert.Equal(t, domain.ProviderPubMed, meta.SourceProvider)
		assert.Equal(t, "CRISPR-Cas9 editing in Mus musculus", meta.Title)
		assert.Equal(t, "BACKGROUND: Gene editing has changed research. METHODS: We analyzed many studies.", meta.Abstract)
		assert.Equal(t, "2023-02-28", meta.DateIssued)
		assert.Equal(t, domain.Journal{Title: "Journal of Testing", Volume: "25", Issue: "3", Pages: "123-145"}, meta.Journal)
		assert.Equal(t, domain.CandidateIDs{PrimaryID: "12345678", SecondaryID: "PMC9876543", DOI: "10.1234/test.2023.001"}, meta.Identifiers)
		assert.Equal(t, []string{"CRISPR", "Gene editing", "CRISPR-Cas Systems"}, meta.Keywords)
		assert.Equal(t, []string{"NIGMS NIH HHS", "Wellcome Trust"}, meta.Funders)

		require.Len(t, meta.Authors, 2)
		assert.Equal(t, "John A Smith", meta.Authors[0].Name)
		assert.Equal(t, "https://orcid.org/0000-0001-2345-6789", meta.Authors[0].ORCID)
		assert.Equal(t, []string{
			"Department of Genetics, University of Research",
			"University of North Carolina at Chapel Hill",
		}, meta.Authors[0].Affiliations)
		assert.Equal(t, 0, meta.Authors[0].Index)
		assert.Equal(t, "CRISPR Research Consortium", meta.Authors[1].Name)
		assert.Equal(t, 1, meta.Authors[1].Index)
	})

	t.Run("medline date and start-end pages", func(t *testing.T) {
		meta, err := Builder{}.Build(&papersources.RawRecord{Payload: []byte(efetchMedlineDateXML)})
		require.NoError(t, err)

		assert.Equal(t, "2022", meta.DateIssued)
		assert.Equal(t, "Mol Ther Methods", meta.Journal.Title)
		assert.Equal(t, "50-75", meta.Journal.Pages)
		assert.Equal(t, "Single section abstract.", meta.Abstract)
		assert.Nil(t, meta.Authors)
	})

	t.Run("keeps requested identifiers the payload lacks", func(t *testing.T) {
		meta, err := Builder{}.Build(&papersources.RawRecord{
			Payload: []byte(efetchMedlineDateXML),
			IDs:     domain.CandidateIDs{SecondaryID: "PMC1"},
		})
		require.NoError(t, err)
		assert.Equal(t, "PMC1", meta.Identifiers.SecondaryID)
		assert.Equal(t, "87654321", meta.Identifiers.PrimaryID)
	})

	t.Run("empty set", func(t *testing.T) {
		_, err := Builder{}.Build(&papersources.RawRecord{Payload: []byte(efetchEmptyResponseXML)})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("malformed payload", func(t *testing.T) {
		_, err := Builder{}.Build(&papersources.RawRecord{Payload: []byte("<PubmedArticleSet")})
		require.Error(t, err)
	})
}

func TestParseMonth(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"03", 3},
		{"12", 12},
		{"13", 0},
		{"Jan", 1},
		{"september", 9},
		{"Spring", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseMonth(tt.in), tt.in)
	}
}

func TestExtractYearFromMedlineDate(t *testing.T) {
	assert.Equal(t, 2020, extractYearFromMedlineDate("2020 Jan-Feb"))
	assert.Equal(t, 2020, extractYearFromMedlineDate("2020-2021"))
	assert.Equal(t, 0, extractYearFromMedlineDate(""))
	assert.Equal(t, 0, extractYearFromMedlineDate("Spring"))
}
