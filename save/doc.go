/*
Package save decodes encrypted character saves (.gdc) and shared stash files
(.gst, .gsh) into inventory entities.

Both formats are cipher-framed, see package crypt. Structure is expressed as
nested blocks, each opened with a tag and a length and closed by a zero
sentinel. A character save is laid out as:

    magic, version 2
    name (wide), sex, class, level, hardcore
    expansion, 0, data version 8, uid (16 bytes)
    block 1: character info (version 5)
    block 2: biography (version 8, skipped)
    block 3: inventory (version 4)
        flag, bag count, focused, selected
        block 0 (per bag): flag, item count, items
        use alternate, 12 equipment slots
        alternate 1, 2 weapon slots
        alternate 2, 2 weapon slots
    block 4: character stash (version 6)
        tab count, one block per tab

A stash file is laid out as:

    version 2
    block 18: stash version 5, 0, mod, expansion, tab count
        one block per tab: width, height, item count, items

Block failures abort decoding unless Options.Lenient is set.
*/
package save
