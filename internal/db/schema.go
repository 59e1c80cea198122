package db

// schemaSQL defines the two corpus tables. The %d placeholders are the
// embedding dimension, which must match the configured embedding model.
const schemaSQL = `
    -- ==========================================================================
    -- PANEL TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS panel SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS chapter_number ON panel TYPE int;
    DEFINE FIELD IF NOT EXISTS chapter_title ON panel TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS page_number ON panel TYPE int;
    DEFINE FIELD IF NOT EXISTS panel_number ON panel TYPE int;
    DEFINE FIELD IF NOT EXISTS dialogue ON panel TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS characters ON panel TYPE array<string>;
    DEFINE FIELD IF NOT EXISTS embedding ON panel TYPE array<float>;

    DEFINE INDEX IF NOT EXISTS panel_chapter ON panel FIELDS chapter_number;
    DEFINE INDEX IF NOT EXISTS panel_embedding ON panel FIELDS embedding HNSW DIMENSION %d DIST COSINE TYPE F32;
    DEFINE ANALYZER IF NOT EXISTS dialogue_analyzer TOKENIZERS class FILTERS lowercase, ascii, snowball(english);
    DEFINE INDEX IF NOT EXISTS panel_dialogue_ft ON panel FIELDS dialogue FULLTEXT ANALYZER dialogue_analyzer BM25;

    -- ==========================================================================
    -- SBS TABLE (author Q&A)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS sbs SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS volume ON sbs TYPE int;
    DEFINE FIELD IF NOT EXISTS question ON sbs TYPE string;
    DEFINE FIELD IF NOT EXISTS answer ON sbs TYPE string;
    DEFINE FIELD IF NOT EXISTS embedding ON sbs TYPE array<float>;

    DEFINE INDEX IF NOT EXISTS sbs_volume ON sbs FIELDS volume;
    DEFINE INDEX IF NOT EXISTS sbs_embedding ON sbs FIELDS embedding HNSW DIMENSION %d DIST COSINE TYPE F32;
    DEFINE ANALYZER IF NOT EXISTS sbs_analyzer TOKENIZERS class FILTERS lowercase, ascii, snowball(english);
    DEFINE INDEX IF NOT EXISTS sbs_text_ft ON sbs FIELDS question, answer FULLTEXT ANALYZER sbs_analyzer BM25;
`
